package api

import (
	"context"
	"errors"
	"headshots/internal/auth"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	currentUserContextKey = "current-user"
)

// RequestUser 存储请求上下文中的认证用户信息
type RequestUser struct {
	ID          string
	Email       string
	DisplayName string
}

// sessionToken 优先读取 cookie，其次 Authorization: Bearer
func (h *HTTPHandler) sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(h.cfg.SessionCookieName); err == nil {
		if trimmed := strings.TrimSpace(cookie); trimmed != "" {
			return trimmed
		}
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// loadSession 解析会话并加载用户，没有有效会话时返回 nil
func (h *HTTPHandler) loadSession(c *gin.Context) (*RequestUser, *auth.Claims, error) {
	tokenString := h.sessionToken(c)
	if tokenString == "" {
		return nil, nil, nil
	}

	claims, err := h.authManager.ParseToken(tokenString)
	if err != nil {
		logrus.WithError(err).Debug("session token rejected")
		return nil, nil, nil
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &RequestUser{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}, claims, nil
}

// RequireSession 需要登录的 API
func (h *HTTPHandler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, err := h.loadSession(c)
		if err != nil {
			logrus.WithError(err).Error("failed to load session user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
				Code:    ErrCodeInternalError,
				Message: "Something went wrong!",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: "Unauthorized",
			})
			return
		}
		c.Set(currentUserContextKey, user)
		c.Next()
	}
}

// OptionalSession 有会话时写入当前用户，由处理器自行决定何时要求登录
func (h *HTTPHandler) OptionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, err := h.loadSession(c)
		if err != nil {
			logrus.WithError(err).Warn("failed to load optional session")
		}
		if user != nil {
			c.Set(currentUserContextKey, user)
		}
		c.Next()
	}
}

// SessionGuard 页面路由守卫：刷新会话并按路径重定向，出错时放行
func (h *HTTPHandler) SessionGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, claims, err := h.loadSession(c)
		if err != nil {
			logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("session guard failed")
			c.Next()
			return
		}

		if user != nil {
			c.Set(currentUserContextKey, user)
			if token, expiresAt, err := h.authManager.Refresh(claims); err == nil {
				h.setSessionCookie(c, token, expiresAt)
			} else {
				logrus.WithError(err).WithField("user_id", user.ID).Warn("session refresh failed")
			}
		}

		if target := GuardRedirect(c.Request.URL.Path, user != nil); target != "" {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

var protectedPrefixes = []string{"/overview", "/get-credits"}

// GuardRedirect 返回需要重定向的目标，空串表示放行
func GuardRedirect(path string, hasSession bool) string {
	if !hasSession {
		for _, prefix := range protectedPrefixes {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return "/login"
			}
		}
		return ""
	}
	if path == "/login" {
		return "/overview"
	}
	return ""
}

func (h *HTTPHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookieName, token, maxAge, "/", "", h.cfg.SessionCookieSecure, true)
}

func (h *HTTPHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookieName, "", -1, "/", "", h.cfg.SessionCookieSecure, true)
}

// startSession 签发会话 cookie
func (h *HTTPHandler) startSession(c *gin.Context, userID, email string) (time.Time, error) {
	token, expiresAt, err := h.authManager.GenerateToken(userID, email)
	if err != nil {
		return time.Time{}, err
	}
	h.setSessionCookie(c, token, expiresAt)
	return expiresAt, nil
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}
