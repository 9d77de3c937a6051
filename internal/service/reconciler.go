package service

import (
	"context"
	"errors"
	"headshots/internal/config"
	"headshots/internal/entity/db"
	"headshots/internal/model"
	"headshots/internal/realtime"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StaleModelReconciler 定期清理长时间停留在 pending 的模型并退还积分
type StaleModelReconciler struct {
	repo     model.Repository
	broker   realtime.Broker
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewStaleModelReconciler 创建对账任务
func NewStaleModelReconciler(cfg config.Config, repo model.Repository, broker realtime.Broker) *StaleModelReconciler {
	interval := cfg.ReconcileInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	timeout := cfg.ReconcilePendingTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	// Astria 调用仍在进行时模型也处于 pending，超时必须大于调用超时
	if floor := 2 * cfg.AstriaTimeout(); timeout < floor {
		logrus.WithFields(logrus.Fields{
			"configured": timeout.String(),
			"applied":    floor.String(),
		}).Warn("reconciler_timeout_raised")
		timeout = floor
	}
	return &StaleModelReconciler{
		repo:     repo,
		broker:   broker,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Run 阻塞直到 ctx 取消
func (r *StaleModelReconciler) Run(ctx context.Context) {
	logrus.WithFields(logrus.Fields{
		"interval": r.interval.String(),
		"timeout":  r.timeout.String(),
	}).Info("reconciler_started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("reconciler_stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithError(err).Error("reconciler_run_failed")
			}
		}
	}
}

// RunOnce 执行一轮清理，返回被释放的模型数
func (r *StaleModelReconciler) RunOnce(ctx context.Context) (int, error) {
	listCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stale, err := r.repo.ListStaleModels(listCtx, db.ModelStatusPending, r.now().Add(-r.timeout))
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range stale {
		if ctx.Err() != nil {
			return released, ctx.Err()
		}
		m := stale[i]
		logger := logrus.WithFields(logrus.Fields{
			"model_id": m.ID,
			"user_id":  m.UserID,
			"refund":   m.ChargedCredits,
		})
		if _, err := r.repo.ReleasePendingModel(ctx, m.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			logger.WithError(err).Error("reconciler_release_failed")
			continue
		}
		released++
		logger.Info("reconciler_model_released")
		publish(ctx, r.broker, realtime.Change{
			Event:   realtime.EventDelete,
			Table:   realtime.TableModels,
			UserID:  m.UserID,
			ModelID: m.ID,
		})
	}
	return released, nil
}
