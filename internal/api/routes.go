package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部路由
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	astriaGroup := r.Group("/astria")
	astriaGroup.GET("/health", h.AstriaHealth)
	astriaGroup.GET("/packs", h.ListPacks)
	astriaGroup.POST("/train-model", h.OptionalSession(), h.TrainModel)
	astriaGroup.POST("/train-webhook", h.TrainWebhook)
	astriaGroup.POST("/prompt-webhook", h.PromptWebhook)

	authGroup := r.Group("/auth")
	authGroup.GET("/callback", h.AuthCallback)
	authGroup.POST("/sign-up", h.SignUp)
	authGroup.POST("/sign-in", h.SignIn)
	authGroup.POST("/sign-out", h.SignOut)
	authGroup.POST("/reset-password", h.ResetPassword)
	authGroup.POST("/update-password", h.RequireSession(), h.UpdatePassword)
	authGroup.GET("/oauth/google", h.GoogleLogin)
	authGroup.GET("/oauth/google/callback", h.GoogleCallback)

	apiGroup := r.Group("/api")
	apiGroup.GET("/download-image", h.DownloadImage)

	protected := apiGroup.Group("")
	protected.Use(h.RequireSession())
	protected.GET("/me", h.Me)
	protected.POST("/uploads", h.UploadSamples)
	protected.GET("/models", h.ListModels)
	protected.GET("/models/:id", h.GetModel)
	protected.GET("/models/:id/events", h.StreamModel)
	protected.GET("/realtime/models", h.StreamModels)

	pages := r.Group("")
	pages.Use(h.SessionGuard())
	pages.GET("/", h.IndexPage)
	pages.GET("/login", h.LoginPage)
	pages.GET("/login/failed", h.LoginFailedPage)
	pages.GET("/reset-password", h.ResetPasswordPage)
	pages.GET("/overview", h.OverviewPage)
	pages.GET("/overview/models/:id", h.ModelPage)
	pages.GET("/get-credits", h.CreditsPage)
}
