package api

import (
	"context"
	"errors"
	"headshots/internal/auth"
	"headshots/internal/entity"
	"headshots/internal/entity/converter"
	"headshots/internal/entity/db"
	"headshots/internal/entity/dto"
	"headshots/internal/mail"
	"headshots/internal/model"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	oauthStateCookie = "oauth_state"
	oauthNextCookie  = "oauth_next"
)

func (h *HTTPHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		InvalidPayload(c)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if err := auth.ValidateEmail(email); err != nil {
		BadRequest(c, ErrCodeInvalidEmail, err.Error())
		return
	}
	if err := auth.ValidatePassword(req.Password, "", false); err != nil {
		BadRequest(c, ErrCodeWeakPassword, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		InternalError(c, "Something went wrong!")
		return
	}

	user := &db.User{
		Email:        email,
		PasswordHash: hash,
		Provider:     db.UserProviderEmail,
	}
	if err := h.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, ErrCodeEmailExists, "User already registered")
			return
		}
		logrus.WithError(err).WithField("email", email).Error("failed to create user")
		InternalError(c, "Something went wrong!")
		return
	}

	code, err := h.issueAuthCode(ctx, user.ID, db.AuthCodePurposeSignup)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to issue signup code")
		InternalError(c, "Something went wrong!")
		return
	}
	link := h.callbackLink(code, db.AuthCodePurposeSignup, "/overview")
	if err := h.mailer.Send(ctx, mail.ConfirmSignup(user.Email, link)); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to send confirmation email")
	}

	logrus.WithField("user_id", user.ID).Info("user_signed_up")
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Check your email to continue the sign in process"})
}

func (h *HTTPHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		InvalidPayload(c)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		BadRequest(c, ErrCodeInvalidRequest, "Email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("email", email).Error("failed to load user for sign in")
			InternalError(c, "Something went wrong!")
			return
		}
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid login credentials")
		return
	}

	if user.PasswordHash == "" || auth.VerifyPassword(user.PasswordHash, req.Password) != nil {
		logrus.WithField("email", email).Warn("password verification failed")
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid login credentials")
		return
	}
	if !user.Confirmed() {
		Forbidden(c, ErrCodeEmailNotConfirmed, "Email not confirmed")
		return
	}

	expiresAt, err := h.startSession(c, user.ID, user.Email)
	if err != nil {
		logrus.WithError(err).Error("failed to generate token")
		InternalError(c, "Something went wrong!")
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		ExpiresAt: expiresAt,
		User:      converter.UserToSummary(user),
	})
}

func (h *HTTPHandler) SignOut(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "success"})
}

// ResetPassword 无论邮箱是否存在都返回 200
func (h *HTTPHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		InvalidPayload(c)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if err := auth.ValidateEmail(email); errors.Is(err, auth.ErrInvalidEmail) {
		BadRequest(c, ErrCodeInvalidEmail, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		code, err := h.issueAuthCode(ctx, user.ID, db.AuthCodePurposeRecovery)
		if err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("failed to issue recovery code")
			break
		}
		link := h.callbackLink(code, db.AuthCodePurposeRecovery, "/reset-password")
		if err := h.mailer.Send(ctx, mail.PasswordRecovery(user.Email, link)); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("failed to send recovery email")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		logrus.WithField("email", email).Info("password reset for unknown email")
	default:
		logrus.WithError(err).Error("failed to load user for password reset")
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password reset email sent"})
}

func (h *HTTPHandler) UpdatePassword(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "Unauthorized")
		return
	}

	var req dto.UpdatePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		InvalidPayload(c)
		return
	}
	if err := auth.ValidatePassword(req.Password, req.ConfirmPassword, true); err != nil {
		BadRequest(c, ErrCodeWeakPassword, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		InternalError(c, "Something went wrong!")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.UpdateUser(ctx, requestUser.ID, entity.UserUpdates{PasswordHash: &hash}); err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to update password")
		InternalError(c, "Something went wrong!")
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated"})
}

// AuthCallback 用一次性码换取会话
func (h *HTTPHandler) AuthCallback(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	next := safeNextPath(c.DefaultQuery("next", "/"))
	callbackType := c.DefaultQuery("type", db.AuthCodePurposeRecovery)

	if errParam := c.Query("error"); errParam != "" {
		logrus.WithFields(logrus.Fields{
			"error":             errParam,
			"error_description": c.Query("error_description"),
		}).Warn("auth callback received error")
	}

	if code == "" {
		c.Redirect(http.StatusFound, next)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	authCode, err := h.repo.ConsumeAuthCode(ctx, auth.HashCode(code), time.Now())
	if err != nil {
		if errors.Is(err, model.ErrInvalidCode) {
			logrus.WithError(err).Warn("auth callback code rejected")
			c.Redirect(http.StatusFound, "/login/failed?err=AuthApiError")
			return
		}
		logrus.WithError(err).Error("auth callback code exchange failed")
		c.Redirect(http.StatusFound, "/login/failed?err=500")
		return
	}

	user, err := h.repo.GetUserByID(ctx, authCode.UserID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", authCode.UserID).Error("auth callback user lookup failed")
		c.Redirect(http.StatusFound, "/login/failed?err=500")
		return
	}

	if callbackType == db.AuthCodePurposeSignup {
		h.completeSignup(ctx, user)
	}

	if _, err := h.startSession(c, user.ID, user.Email); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("auth callback session failed")
		c.Redirect(http.StatusFound, "/login/failed?err=500")
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"type":    callbackType,
	}).Info("auth_callback_signed_in")
	c.Redirect(http.StatusFound, next)
}

// completeSignup 确认邮箱并确保积分行存在，失败只记录日志
func (h *HTTPHandler) completeSignup(ctx context.Context, user *db.User) {
	logger := logrus.WithField("user_id", user.ID)
	if !user.Confirmed() {
		now := time.Now()
		if err := h.repo.UpdateUser(ctx, user.ID, entity.UserUpdates{EmailConfirmedAt: &now}); err != nil {
			logger.WithError(err).Error("failed to confirm email")
		} else {
			user.EmailConfirmedAt = &now
		}
	}
	if _, created, err := h.repo.EnsureCredits(ctx, user.ID); err != nil {
		logger.WithError(err).Error("failed to create credits row")
	} else if created {
		logger.Info("credits_row_created")
	}
}

func (h *HTTPHandler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		NotFound(c, ErrCodeNotFound, "Google sign-in is not configured")
		return
	}
	state, err := auth.NewState()
	if err != nil {
		logrus.WithError(err).Error("failed to create oauth state")
		c.Redirect(http.StatusFound, "/login/failed?err=500")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.cfg.SessionCookieSecure, true)
	c.SetCookie(oauthNextCookie, safeNextPath(c.DefaultQuery("next", "/overview")), 600, "/", "", h.cfg.SessionCookieSecure, true)
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

func (h *HTTPHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		NotFound(c, ErrCodeNotFound, "Google sign-in is not configured")
		return
	}

	expected, _ := c.Cookie(oauthStateCookie)
	next, _ := c.Cookie(oauthNextCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cfg.SessionCookieSecure, true)
	c.SetCookie(oauthNextCookie, "", -1, "/", "", h.cfg.SessionCookieSecure, true)

	if expected == "" || c.Query("state") != expected || c.Query("code") == "" {
		logrus.WithField("error", c.Query("error")).Warn("google callback rejected")
		c.Redirect(http.StatusFound, "/login/failed?err=AuthApiError")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	profile, err := h.google.Exchange(ctx, c.Query("code"))
	if err != nil {
		logrus.WithError(err).Error("google exchange failed")
		c.Redirect(http.StatusFound, "/login/failed?err=AuthApiError")
		return
	}

	user, callbackType, err := h.upsertGoogleUser(ctx, profile)
	if err != nil {
		logrus.WithError(err).WithField("email", profile.Email).Error("google user upsert failed")
		c.Redirect(http.StatusFound, "/login/failed?err=500")
		return
	}

	code, err := h.issueAuthCode(ctx, user.ID, db.AuthCodePurposeOAuth)
	if err != nil {
		logrus.WithError(err).Error("failed to issue oauth code")
		c.Redirect(http.StatusFound, "/login/failed?err=500")
		return
	}

	query := url.Values{}
	query.Set("code", code)
	query.Set("type", callbackType)
	query.Set("next", safeNextPath(next))
	c.Redirect(http.StatusFound, "/auth/callback?"+query.Encode())
}

// upsertGoogleUser 新用户走 signup 流程，已有用户走 magiclink
func (h *HTTPHandler) upsertGoogleUser(ctx context.Context, profile *auth.GoogleUser) (*db.User, string, error) {
	email := auth.NormalizeEmail(profile.Email)
	if email == "" || !profile.VerifiedEmail {
		return nil, "", errors.New("google account has no verified email")
	}

	existing, err := h.repo.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Confirmed() {
			return existing, "magiclink", nil
		}
		return existing, db.AuthCodePurposeSignup, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	now := time.Now()
	user := &db.User{
		Email:            email,
		DisplayName:      strings.TrimSpace(profile.Name),
		AvatarURL:        strings.TrimSpace(profile.Picture),
		Provider:         db.UserProviderGoogle,
		EmailConfirmedAt: &now,
	}
	if err := h.repo.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}
	return user, db.AuthCodePurposeSignup, nil
}

func (h *HTTPHandler) issueAuthCode(ctx context.Context, userID, purpose string) (string, error) {
	code, hash, err := auth.NewCode()
	if err != nil {
		return "", err
	}
	record := &db.AuthCode{
		UserID:    userID,
		CodeHash:  hash,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(h.cfg.AuthCodeTTL()),
	}
	if err := h.repo.CreateAuthCode(ctx, record); err != nil {
		return "", err
	}
	return code, nil
}

func (h *HTTPHandler) callbackLink(code, callbackType, next string) string {
	query := url.Values{}
	query.Set("code", code)
	query.Set("type", callbackType)
	query.Set("next", next)
	return h.cfg.PublicBaseURL() + "/auth/callback?" + query.Encode()
}

// safeNextPath 只接受同源的相对路径
func safeNextPath(next string) string {
	trimmed := strings.TrimSpace(next)
	if !strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/\\") {
		return "/"
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return "/"
	}
	return parsed.RequestURI()
}
