package api

import (
	"context"
	"errors"
	"headshots/internal/config"
	"headshots/internal/entity/dto"
	"headshots/internal/service"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TrainModel POST /astria/train-model
func (h *HTTPHandler) TrainModel(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		logrus.WithError(err).Warn("train model body read failed")
	}
	req := dto.DecodeTrainModelRequest(body)

	urls, ok := req.ImageURLs()
	if !ok {
		MissingField(c, "urls", "Missing or invalid 'urls' field: Must provide an array of image URLs")
		return
	}
	name := strings.TrimSpace(req.Name)
	modelType := strings.TrimSpace(req.Type)
	pack := req.Pack.String()
	if modelType == "" {
		MissingField(c, "type", "Missing 'type' field: Please specify a model type")
		return
	}
	if name == "" {
		MissingField(c, "name", "Missing 'name' field: Please provide a name for the model")
		return
	}
	if h.features.PacksEnabled && pack == "" {
		MissingField(c, "pack", "Missing 'pack' field: A pack ID is required when using packs mode")
		return
	}

	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "Unauthorized")
		return
	}

	// 外部调用可能较慢，超时由 Astria 客户端控制
	m, err := h.trainingService.Submit(c.Request.Context(), service.TrainRequest{
		UserID:          requestUser.ID,
		Name:            name,
		Type:            modelType,
		PackID:          pack,
		ImageURLs:       urls,
		Characteristics: req.Characteristics,
	})
	if err != nil {
		var te *service.TrainingError
		if !errors.As(err, &te) {
			logrus.WithError(err).Error("train model failed")
			InternalError(c, "Something went wrong!")
			return
		}
		status, code := trainingErrorStatus(te.Kind)
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": requestUser.ID,
			"status":  status,
		}).Warn("train model rejected")
		ErrorResponse(c, status, code, te.Message)
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  requestUser.ID,
		"model_id": m.ID,
	}).Info("train model accepted")
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "success"})
}

// trainingErrorStatus 余额与样本不足沿用 500，保持与既有调用方兼容
func trainingErrorStatus(kind service.TrainingErrorKind) (int, string) {
	switch kind {
	case service.TrainingErrInsufficientSamples:
		return http.StatusInternalServerError, ErrCodeInsufficientSamples
	case service.TrainingErrInsufficientCredits:
		return http.StatusInternalServerError, ErrCodeInsufficientCredits
	case service.TrainingErrInvalidWebhook:
		return http.StatusBadRequest, ErrCodeInvalidWebhook
	case service.TrainingErrPaymentRequired:
		return http.StatusPaymentRequired, ErrCodePaymentRequired
	case service.TrainingErrProvider:
		return http.StatusInternalServerError, ErrCodeProviderError
	case service.TrainingErrUnreachable:
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	case service.TrainingErrNoResponse:
		return http.StatusGatewayTimeout, ErrCodeGatewayTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// AstriaHealth GET /astria/health
func (h *HTTPHandler) AstriaHealth(c *gin.Context) {
	resp := buildAstriaHealth(h.cfg)
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusInternalServerError
	}
	c.JSON(status, resp)
}

func buildAstriaHealth(cfg config.Config) dto.AstriaHealthResponse {
	notSet := func(value string) string {
		if strings.TrimSpace(value) == "" {
			return "not set"
		}
		return value
	}

	health := dto.AstriaHealthConfig{
		AstriaAPIConfigured:          strings.TrimSpace(cfg.AstriaAPIKey) != "",
		WebhookSecretConfigured:      strings.TrimSpace(cfg.AppWebhookSecret) != "",
		DeploymentURLConfigured:      strings.TrimSpace(cfg.DeploymentURL) != "",
		TuneType:                     notSet(cfg.TuneType),
		PackQueryType:                notSet(cfg.PackQueryType),
		StripeEnabled:                cfg.StripeEnabled,
		BlobStorageConfigured:        strings.TrimSpace(cfg.BlobReadWriteToken) != "",
		EmailNotificationsConfigured: strings.TrimSpace(cfg.ResendAPIKey) != "",
	}

	if !health.AstriaAPIConfigured || !health.WebhookSecretConfigured {
		return dto.AstriaHealthResponse{
			Status:  "error",
			Message: "Missing critical configuration. Check your environment variables.",
			Config:  health,
		}
	}
	return dto.AstriaHealthResponse{
		Status:  "ok",
		Message: "API is properly configured",
		Config:  health,
	}
}

// ListPacks GET /astria/packs
func (h *HTTPHandler) ListPacks(c *gin.Context) {
	if h.astria == nil {
		InternalError(c, "Missing Astria API key")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	packs, err := h.astria.ListPacks(ctx, h.cfg.PackQueryType)
	if err != nil {
		logrus.WithError(err).Error("failed to list packs")
		InternalError(c, "Failed to fetch packs.")
		return
	}
	c.JSON(http.StatusOK, packs)
}

func webhookParams(c *gin.Context) service.WebhookParams {
	return service.WebhookParams{
		UserID:        c.Query("user_id"),
		ModelID:       c.Query("model_id"),
		WebhookSecret: c.Query("webhook_secret"),
	}
}

func respondWebhookError(c *gin.Context, err error) {
	var we *service.WebhookError
	if errors.As(err, &we) {
		if we.StatusCode >= http.StatusInternalServerError {
			logrus.WithError(err).Error("astria webhook failed")
		} else {
			logrus.WithError(err).Warn("astria webhook rejected")
		}
		c.JSON(we.StatusCode, dto.MessageResponse{Message: we.Message})
		return
	}
	logrus.WithError(err).Error("astria webhook failed")
	c.JSON(http.StatusInternalServerError, dto.MessageResponse{Message: "Something went wrong!"})
}

// TrainWebhook POST /astria/train-webhook
func (h *HTTPHandler) TrainWebhook(c *gin.Context) {
	var payload dto.TuneWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "invalid request payload"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.webhookService.HandleTrained(ctx, webhookParams(c), payload); err != nil {
		respondWebhookError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "success"})
}

// PromptWebhook POST /astria/prompt-webhook
func (h *HTTPHandler) PromptWebhook(c *gin.Context) {
	var payload dto.PromptWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "invalid request payload"})
		return
	}

	// 转存结果图片需要更长时间
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	if _, err := h.webhookService.HandlePrompt(ctx, webhookParams(c), payload); err != nil {
		respondWebhookError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "success"})
}
