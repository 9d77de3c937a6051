package api

import (
	"bytes"
	"context"
	"embed"
	"headshots/internal/entity/converter"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index", "login", "login_failed", "reset_password", "overview", "model", "credits",
}

// 每个页面单独和 base 组合，避免 content 重名
var pageTemplates = func() map[string]*template.Template {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html"))
	}
	return pages
}()

var loginFailureMessages = map[string]string{
	"AuthApiError": "Your sign in link is invalid or has expired. Please sign in again.",
	"500":          "Something went wrong on our side. Please try again.",
}

type pageData struct {
	Title          string
	User           *RequestUser
	BillingEnabled bool
	Data           any
}

func (h *HTTPHandler) renderPage(c *gin.Context, status int, name, title string, data any) {
	tmpl, ok := pageTemplates[name]
	if !ok {
		InternalError(c, "page not found")
		return
	}

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "base", pageData{
		Title:          title,
		User:           CurrentUser(c),
		BillingEnabled: h.features.BillingEnabled,
		Data:           data,
	})
	if err != nil {
		logrus.WithError(err).WithField("page", name).Error("failed to render page")
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (h *HTTPHandler) IndexPage(c *gin.Context) {
	h.renderPage(c, http.StatusOK, "index", "Home", nil)
}

func (h *HTTPHandler) LoginPage(c *gin.Context) {
	mode := c.DefaultQuery("mode", "sign-in")
	h.renderPage(c, http.StatusOK, "login", "Login", gin.H{
		"Mode":          mode,
		"GoogleEnabled": h.google != nil,
	})
}

func (h *HTTPHandler) LoginFailedPage(c *gin.Context) {
	message, ok := loginFailureMessages[c.Query("err")]
	if !ok {
		message = "Sign in failed. Please try again."
	}
	h.renderPage(c, http.StatusOK, "login_failed", "Login failed", gin.H{"Message": message})
}

func (h *HTTPHandler) ResetPasswordPage(c *gin.Context) {
	h.renderPage(c, http.StatusOK, "reset_password", "Reset password", nil)
}

func (h *HTTPHandler) OverviewPage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	models, err := h.repo.ListUserModels(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to load overview")
		c.String(http.StatusInternalServerError, "failed to load models")
		return
	}
	credits, err := h.loadCredits(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Warn("failed to load credits for overview")
	}

	h.renderPage(c, http.StatusOK, "overview", "Overview", gin.H{
		"Models":       converter.ModelsToViews(models),
		"Credits":      credits,
		"PacksEnabled": h.features.PacksEnabled,
	})
}

func (h *HTTPHandler) ModelPage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	m, ok := h.loadOwnedModel(c, requestUser.ID)
	if !ok {
		return
	}
	view := converter.ModelToView(m)
	h.renderPage(c, http.StatusOK, "model", view.Name, gin.H{"Model": view})
}

func (h *HTTPHandler) CreditsPage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	credits, err := h.loadCredits(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to load credits")
		c.String(http.StatusInternalServerError, "failed to load credits")
		return
	}
	h.renderPage(c, http.StatusOK, "credits", "Credits", gin.H{"Credits": credits})
}
