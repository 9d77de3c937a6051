package api

import (
	"context"
	"errors"
	"headshots/internal/entity/converter"
	"headshots/internal/entity/db"
	"headshots/internal/entity/dto"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func (h *HTTPHandler) Me(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to load user profile")
		InternalError(c, "failed to load profile")
		return
	}

	credits, err := h.loadCredits(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to load credits")
		InternalError(c, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, dto.MeResponse{
		User:           converter.UserToSummary(user),
		Credits:        credits,
		BillingEnabled: h.features.BillingEnabled,
	})
}

// loadCredits 没有积分行视为 0
func (h *HTTPHandler) loadCredits(ctx context.Context, userID string) (int, error) {
	credit, err := h.repo.GetCredits(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return credit.Credits, nil
}

func (h *HTTPHandler) ListModels(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	models, err := h.repo.ListUserModels(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to list models")
		InternalError(c, "failed to load models")
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": converter.ModelsToViews(models)})
}

func (h *HTTPHandler) GetModel(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "Unauthorized")
		return
	}

	m, ok := h.loadOwnedModel(c, requestUser.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, converter.ModelToView(m))
}

// loadOwnedModel 解析 :id 并加载属于当前用户的模型，失败时已写入响应
func (h *HTTPHandler) loadOwnedModel(c *gin.Context, userID string) (*db.Model, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid model id")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	m, err := h.repo.GetUserModel(ctx, userID, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeModelNotFound, "Model not found")
			return nil, false
		}
		logrus.WithError(err).WithField("model_id", id).Error("failed to load model")
		InternalError(c, "failed to load model")
		return nil, false
	}
	return m, true
}
