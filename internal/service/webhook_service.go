package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"headshots/internal/config"
	"headshots/internal/entity"
	"headshots/internal/entity/converter"
	"headshots/internal/entity/db"
	"headshots/internal/entity/dto"
	"headshots/internal/mail"
	"headshots/internal/model"
	"headshots/internal/realtime"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WebhookError 回调校验或处理失败，StatusCode 为返回给 Astria 的 HTTP 状态
type WebhookError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *WebhookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

func (e *WebhookError) Unwrap() error {
	return e.Err
}

// WebhookParams 回调 URL 上携带的查询参数
type WebhookParams struct {
	UserID        string
	ModelID       string
	WebhookSecret string
}

// WebhookService 处理 Astria 的训练与生图回调
type WebhookService struct {
	repo     model.Repository
	broker   realtime.Broker
	mailer   mail.Mailer
	media    *MediaService
	secret   string
	siteBase string
}

// NewWebhookService 创建回调服务实例
func NewWebhookService(cfg config.Config, repo model.Repository, broker realtime.Broker, mailer mail.Mailer, media *MediaService) *WebhookService {
	return &WebhookService{
		repo:     repo,
		broker:   broker,
		mailer:   mailer,
		media:    media,
		secret:   cfg.AppWebhookSecret,
		siteBase: cfg.PublicBaseURL(),
	}
}

// Authorize 校验回调参数并返回所属用户与模型
func (s *WebhookService) Authorize(ctx context.Context, params WebhookParams) (*db.User, *db.Model, error) {
	secret := strings.TrimSpace(params.WebhookSecret)
	if secret == "" {
		return nil, nil, &WebhookError{StatusCode: http.StatusInternalServerError, Message: "Malformed URL, no webhook_secret detected!"}
	}
	if !secretsEqual(secret, s.secret) {
		return nil, nil, &WebhookError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized!"}
	}

	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		return nil, nil, &WebhookError{StatusCode: http.StatusInternalServerError, Message: "Malformed URL, no user_id detected!"}
	}
	modelID, err := strconv.ParseUint(strings.TrimSpace(params.ModelID), 10, 64)
	if err != nil || modelID == 0 {
		return nil, nil, &WebhookError{StatusCode: http.StatusInternalServerError, Message: "Malformed URL, no model_id detected!"}
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &WebhookError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized"}
		}
		return nil, nil, &WebhookError{StatusCode: http.StatusInternalServerError, Message: msgSomethingWrong, Err: err}
	}

	m, err := s.repo.GetUserModel(ctx, user.ID, uint(modelID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &WebhookError{StatusCode: http.StatusNotFound, Message: "Model not found"}
		}
		return nil, nil, &WebhookError{StatusCode: http.StatusInternalServerError, Message: msgSomethingWrong, Err: err}
	}
	return user, m, nil
}

// HandleTrained 训练完成：记录 tune id，状态置为 finished，并邮件通知用户
func (s *WebhookService) HandleTrained(ctx context.Context, params WebhookParams, payload dto.TuneWebhookPayload) error {
	user, m, err := s.Authorize(ctx, params)
	if err != nil {
		return err
	}
	logger := logrus.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":  user.ID,
		"model_id": m.ID,
	})

	status := db.ModelStatusFinished
	updates := entity.ModelUpdates{Status: &status}
	if tuneID := payload.Tune.ID.String(); tuneID != "" {
		updates.TuneID = &tuneID
	}
	if err := s.repo.UpdateModel(ctx, m.ID, updates); err != nil {
		logger.WithError(err).Error("train_webhook_update_failed")
		return &WebhookError{StatusCode: http.StatusInternalServerError, Message: msgSomethingWrong, Err: err}
	}
	logger.WithField("tune_id", payload.Tune.ID.String()).Info("train_webhook_finished")

	if full, err := s.repo.GetModel(ctx, m.ID); err == nil {
		publish(ctx, s.broker, realtime.ModelChange(realtime.EventUpdate, converter.ModelToView(full)))
	} else {
		logger.WithError(err).Warn("realtime_model_reload_failed")
	}

	if s.mailer != nil {
		link := fmt.Sprintf("%s/overview/models/%d", strings.TrimRight(s.siteBase, "/"), m.ID)
		if err := s.mailer.Send(ctx, mail.ModelTrained(user.Email, m.Name, link)); err != nil {
			logger.WithError(err).Warn("train_webhook_mail_failed")
		}
	}
	return nil
}

// HandlePrompt 生图完成：保存结果图片（可选转存），逐条推送
func (s *WebhookService) HandlePrompt(ctx context.Context, params WebhookParams, payload dto.PromptWebhookPayload) ([]db.Image, error) {
	user, m, err := s.Authorize(ctx, params)
	if err != nil {
		return nil, err
	}
	logger := logrus.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":   user.ID,
		"model_id":  m.ID,
		"prompt_id": payload.Prompt.ID.String(),
	})

	sources := make([]string, 0, len(payload.Prompt.Images))
	for _, raw := range payload.Prompt.Images {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			sources = append(sources, trimmed)
		}
	}
	if len(sources) == 0 {
		logger.Info("prompt_webhook_without_images")
		return nil, nil
	}

	uris, notes := s.media.MirrorOutputs(ctx, sources)
	if notes != "" {
		logger.WithField("notes", notes).Warn("prompt_webhook_mirror_partial")
	}

	rows := make([]db.Image, 0, len(uris))
	for _, uri := range uris {
		rows = append(rows, db.Image{ModelID: m.ID, URI: uri, PromptID: payload.Prompt.ID.String()})
	}
	created, err := s.repo.CreateImages(ctx, rows)
	if err != nil {
		logger.WithError(err).Error("prompt_webhook_insert_failed")
		return nil, &WebhookError{StatusCode: http.StatusInternalServerError, Message: msgSomethingWrong, Err: err}
	}
	logger.WithField("image_count", len(created)).Info("prompt_webhook_images_saved")

	for i := range created {
		publish(ctx, s.broker, realtime.ImageChange(realtime.EventInsert, user.ID, converter.ImageToView(&created[i])))
	}
	return created, nil
}

// secretsEqual 忽略大小写的常量时间比较
func secretsEqual(got, want string) bool {
	if want == "" {
		return false
	}
	a := []byte(strings.ToLower(got))
	b := []byte(strings.ToLower(want))
	return subtle.ConstantTimeCompare(a, b) == 1
}
