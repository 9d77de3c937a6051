package realtime

import (
	"context"
	"fmt"
	"headshots/internal/config"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewBroker returns a RedisBroker when REDIS_ADDR is set, otherwise an in-process one.
func NewBroker(cfg config.Config) (Broker, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		logrus.Info("realtime broker: in-memory")
		return NewMemoryBroker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logrus.WithField("addr", addr).Info("realtime broker: redis")
	return NewRedisBroker(client), nil
}
