package api

import (
	"headshots/internal/astria"
	"headshots/internal/auth"
	"headshots/internal/config"
	"headshots/internal/mail"
	"headshots/internal/model"
	"headshots/internal/realtime"
	"headshots/internal/service"
	"headshots/internal/storage"
	"net/http"
	"time"
)

// Dependencies 由 main 组装后注入
type Dependencies struct {
	Config  config.Config
	Repo    model.Repository
	Storage storage.Storage
	Broker  realtime.Broker
	Mailer  mail.Mailer
	// Astria 为 nil 表示未配置 ASTRIA_API_KEY
	Astria *astria.Client
}

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	features    config.Features
	repo        model.Repository
	broker      realtime.Broker
	mailer      mail.Mailer
	astria      *astria.Client
	authManager *auth.Manager
	google      *auth.GoogleProvider
	httpClient  *http.Client

	// 服务层
	trainingService *service.TrainingService
	webhookService  *service.WebhookService
	mediaService    *service.MediaService

	// SSE 心跳间隔
	heartbeat time.Duration
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(deps Dependencies) (*HTTPHandler, error) {
	cfg := deps.Config
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	mailer := deps.Mailer
	if mailer == nil {
		mailer = &mail.LogMailer{}
	}

	// nil 指针不能直接放进接口
	var tunes service.TuneCreator
	if deps.Astria != nil {
		tunes = deps.Astria
	}

	media := service.NewMediaService(cfg, deps.Storage)
	handler := &HTTPHandler{
		cfg:             cfg,
		features:        cfg.Features(),
		repo:            deps.Repo,
		broker:          deps.Broker,
		mailer:          mailer,
		astria:          deps.Astria,
		authManager:     authManager,
		google:          auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.PublicBaseURL()+"/auth/oauth/google/callback"),
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		trainingService: service.NewTrainingService(cfg, deps.Repo, tunes, deps.Broker),
		webhookService:  service.NewWebhookService(cfg, deps.Repo, deps.Broker, mailer, media),
		mediaService:    media,
		heartbeat:       10 * time.Second,
	}
	return handler, nil
}
