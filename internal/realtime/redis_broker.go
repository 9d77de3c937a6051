package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisChannelPrefix = "realtime:"

// RedisBroker relays changes over Redis Pub/Sub so that every replica
// sees the writes of the others.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func redisChannel(userID string) string {
	return redisChannelPrefix + userID
}

func (b *RedisBroker) Publish(ctx context.Context, change Change) error {
	if change.UserID == "" {
		return nil
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, redisChannel(change.UserID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (<-chan Change, func(), error) {
	pubsub := b.client.Subscribe(ctx, redisChannel(userID))
	// 等待订阅确认，避免丢失订阅之后立即发布的消息
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Change, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					logrus.WithError(err).WithField("channel", msg.Channel).Warn("discarding malformed realtime payload")
					continue
				}
				select {
				case out <- change:
				default:
					logrus.WithFields(logrus.Fields{
						"user_id": userID,
						"table":   change.Table,
						"event":   change.Event,
					}).Warn("dropping realtime change due to slow consumer")
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				logrus.WithError(err).Debug("redis pubsub close")
			}
		})
	}
	return out, cancel, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
