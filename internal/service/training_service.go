package service

import (
	"context"
	"errors"
	"fmt"
	"headshots/internal/astria"
	"headshots/internal/config"
	"headshots/internal/entity/common"
	"headshots/internal/entity/converter"
	"headshots/internal/entity/db"
	"headshots/internal/model"
	"headshots/internal/realtime"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// MinSampleImages 训练所需的最少样本数
const MinSampleImages = 4

// TrainingErrorKind 训练提交失败的分类
type TrainingErrorKind string

const (
	TrainingErrInsufficientSamples TrainingErrorKind = "insufficient_samples"
	TrainingErrInsufficientCredits TrainingErrorKind = "insufficient_credits"
	TrainingErrInvalidWebhook      TrainingErrorKind = "invalid_webhook"
	TrainingErrPaymentRequired     TrainingErrorKind = "payment_required"
	TrainingErrProvider            TrainingErrorKind = "provider_error"
	TrainingErrUnreachable         TrainingErrorKind = "provider_unreachable"
	TrainingErrNoResponse          TrainingErrorKind = "provider_no_response"
	TrainingErrInternal            TrainingErrorKind = "internal"
)

const (
	msgSomethingWrong      = "Something went wrong!"
	msgInsufficientCredits = "Not enough credits, please purchase some credits and try again."
)

// TrainingError 提交训练失败时返回给调用方的错误，Message 可直接展示给用户
type TrainingError struct {
	Kind       TrainingErrorKind
	Message    string
	StatusCode int // 训练服务返回的状态码（如有）
	Err        error
}

func (e *TrainingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// TuneCreator 提交微调任务的外部接口
type TuneCreator interface {
	CreateTune(ctx context.Context, req astria.TuneRequest) (*astria.TuneResponse, error)
}

// TrainRequest 已通过字段校验的训练请求
type TrainRequest struct {
	UserID          string
	Name            string
	Type            string
	PackID          string
	ImageURLs       []string
	Characteristics map[string]any
}

// TrainingService 封装训练提交：预扣积分、调用 Astria、失败补偿
type TrainingService struct {
	repo          model.Repository
	tunes         TuneCreator
	broker        realtime.Broker
	features      config.Features
	publicBase    string
	webhookSecret string
}

// NewTrainingService 创建训练服务实例，tunes 为 nil 表示未配置 API Key
func NewTrainingService(cfg config.Config, repo model.Repository, tunes TuneCreator, broker realtime.Broker) *TrainingService {
	return &TrainingService{
		repo:          repo,
		tunes:         tunes,
		broker:        broker,
		features:      cfg.Features(),
		publicBase:    cfg.PublicBaseURL(),
		webhookSecret: cfg.AppWebhookSecret,
	}
}

// Submit 提交训练任务。返回的错误均为 *TrainingError。
func (s *TrainingService) Submit(ctx context.Context, req TrainRequest) (*db.Model, error) {
	logger := logrus.WithContext(ctx).WithFields(logrus.Fields{
		"user_id": req.UserID,
		"name":    req.Name,
		"type":    req.Type,
	})

	if len(req.ImageURLs) < MinSampleImages {
		return nil, &TrainingError{Kind: TrainingErrInsufficientSamples, Message: "Upload at least 4 sample images"}
	}
	if s.tunes == nil {
		logger.Error("astria_api_key_missing")
		return nil, &TrainingError{Kind: TrainingErrInternal, Message: "Missing Astria API key"}
	}

	charge := 0
	if s.features.BillingEnabled {
		credit, created, err := s.repo.EnsureCredits(ctx, req.UserID)
		if err != nil {
			logger.WithError(err).Error("credits_lookup_failed")
			return nil, &TrainingError{Kind: TrainingErrInternal, Message: msgSomethingWrong, Err: err}
		}
		if created || credit.Credits < 1 {
			return nil, &TrainingError{Kind: TrainingErrInsufficientCredits, Message: msgInsufficientCredits}
		}
		charge = 1
	}

	m := &db.Model{
		UserID: req.UserID,
		Name:   req.Name,
		Type:   req.Type,
		PackID: req.PackID,
	}
	if len(req.Characteristics) > 0 {
		m.Characteristics = common.JSONMap(req.Characteristics)
	}
	if err := s.repo.ReserveModel(ctx, m, charge); err != nil {
		if errors.Is(err, model.ErrInsufficientCredits) {
			return nil, &TrainingError{Kind: TrainingErrInsufficientCredits, Message: msgInsufficientCredits}
		}
		logger.WithError(err).Error("model_reserve_failed")
		return nil, &TrainingError{Kind: TrainingErrInternal, Message: msgSomethingWrong, Err: err}
	}
	logger = logger.WithField("model_id", m.ID)
	s.publishModel(ctx, realtime.EventInsert, m.ID)

	tuneReq := astria.TuneRequest{
		Title:           req.Name,
		ModelType:       req.Type,
		ImageURLs:       req.ImageURLs,
		Characteristics: req.Characteristics,
		Callbacks:       astria.BuildCallbacks(s.publicBase, req.UserID, m.ID, s.webhookSecret),
	}
	if s.features.PacksEnabled {
		tuneReq.PackID = req.PackID
	}

	resp, err := s.tunes.CreateTune(ctx, tuneReq)
	if err != nil {
		s.rollback(m, logger)
		return nil, transportFailure(err)
	}
	if resp.StatusCode != http.StatusCreated {
		logger.WithField("status", resp.StatusCode).Error("astria_unexpected_status")
		s.rollback(m, logger)
		return nil, providerFailure(resp.StatusCode)
	}

	samples, err := s.repo.CompleteModelSubmission(ctx, m.ID, resp.TuneID, req.ImageURLs)
	if err != nil {
		// 模型保持 pending，由后台对账任务清理并退款
		logger.WithError(err).Error("model_complete_submission_failed")
		return nil, &TrainingError{Kind: TrainingErrInternal, Message: msgSomethingWrong, Err: err}
	}
	logger.WithField("tune_id", resp.TuneID).Info("model_training_submitted")

	for i := range samples {
		publish(ctx, s.broker, realtime.SampleChange(realtime.EventInsert, m.UserID, converter.SampleToView(&samples[i])))
	}
	s.publishModel(ctx, realtime.EventUpdate, m.ID)

	// 回调可能已先到达，以库中状态为准
	if current, err := s.repo.GetModel(ctx, m.ID); err == nil {
		return current, nil
	}
	m.Status = db.ModelStatusTraining
	m.TuneID = resp.TuneID
	return m, nil
}

// rollback 删除预留的模型并退还积分，失败只记录日志
func (s *TrainingService) rollback(m *db.Model, logger *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.repo.ReleasePendingModel(ctx, m.ID); err != nil {
		logger.WithError(err).Error("model_rollback_failed")
		return
	}
	logger.Info("model_rolled_back")
	publish(ctx, s.broker, realtime.Change{
		Event:   realtime.EventDelete,
		Table:   realtime.TableModels,
		UserID:  m.UserID,
		ModelID: m.ID,
	})
}

func (s *TrainingService) publishModel(ctx context.Context, event realtime.Event, modelID uint) {
	if s.broker == nil {
		return
	}
	full, err := s.repo.GetModel(ctx, modelID)
	if err != nil {
		logrus.WithError(err).WithField("model_id", modelID).Warn("realtime_model_reload_failed")
		return
	}
	publish(ctx, s.broker, realtime.ModelChange(event, converter.ModelToView(full)))
}

func providerFailure(status int) *TrainingError {
	switch status {
	case http.StatusBadRequest:
		return &TrainingError{Kind: TrainingErrInvalidWebhook, Message: "webhookUrl must be a URL address", StatusCode: status}
	case http.StatusPaymentRequired:
		return &TrainingError{Kind: TrainingErrPaymentRequired, Message: "Training models is only available on paid plans.", StatusCode: status}
	default:
		return &TrainingError{Kind: TrainingErrProvider, Message: fmt.Sprintf("Astria API returned status %d", status), StatusCode: status}
	}
}

func transportFailure(err error) *TrainingError {
	switch astria.KindOf(err) {
	case astria.ErrorUnreachable:
		return &TrainingError{
			Kind:    TrainingErrUnreachable,
			Message: "Could not connect to Astria API. Please check your internet connection and try again.",
			Err:     err,
		}
	case astria.ErrorNoResponse:
		return &TrainingError{
			Kind:    TrainingErrNoResponse,
			Message: "No response received from Astria API. Please try again later.",
			Err:     err,
		}
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = msgSomethingWrong
	}
	return &TrainingError{Kind: TrainingErrInternal, Message: message, Err: err}
}

// publish 发布变更，失败只记录日志
func publish(ctx context.Context, broker realtime.Broker, change realtime.Change) {
	if broker == nil {
		return
	}
	if err := broker.Publish(ctx, change); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"table":    change.Table,
			"event":    change.Event,
			"model_id": change.ModelID,
		}).Warn("realtime_publish_failed")
	}
}
