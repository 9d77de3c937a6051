package api

import (
	"context"
	"headshots/internal/entity/converter"
	"headshots/internal/entity/dto"
	"headshots/internal/realtime"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// prepareSSE 只设置缓存相关头，Content-Type 由 c.SSEvent 写入
func prepareSSE(c *gin.Context) {
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}

// StreamModels GET /api/realtime/models：先推送快照，再推送合并后的单个模型
func (h *HTTPHandler) StreamModels(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "Unauthorized")
		return
	}
	if h.broker == nil {
		ServiceUnavailable(c, "realtime updates are not available")
		return
	}

	ctx := c.Request.Context()
	// 先订阅再读快照，避免漏掉两者之间的变更
	changes, unsubscribe, err := h.broker.Subscribe(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("realtime subscribe failed")
		ServiceUnavailable(c, "realtime updates are not available")
		return
	}
	defer unsubscribe()

	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	models, err := h.repo.ListUserModels(loadCtx, requestUser.ID)
	cancel()
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to load realtime snapshot")
		InternalError(c, "failed to load models")
		return
	}
	set := realtime.NewModelSet(converter.ModelsToViews(models))

	prepareSSE(c)
	c.SSEvent("snapshot", gin.H{"models": set.List()})
	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	heartbeatTicker := time.NewTicker(h.heartbeat)
	defer heartbeatTicker.Stop()

	logrus.WithField("user_id", requestUser.ID).Info("models sse connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			logrus.WithField("user_id", requestUser.ID).Info("models sse disconnected")
			return false
		case <-heartbeatTicker.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UnixMilli()})
			return true
		case change, ok := <-changes:
			if !ok {
				return false
			}
			view, deleted, changed := set.Apply(change)
			switch {
			case deleted:
				c.SSEvent("model_deleted", gin.H{"id": view.ID})
			case changed:
				c.SSEvent("model", view)
			}
			return true
		}
	})
}

// StreamModel GET /api/models/:id/events：单个模型及其样本、结果
func (h *HTTPHandler) StreamModel(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "Unauthorized")
		return
	}
	if h.broker == nil {
		ServiceUnavailable(c, "realtime updates are not available")
		return
	}

	ctx := c.Request.Context()
	changes, unsubscribe, err := h.broker.Subscribe(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("realtime subscribe failed")
		ServiceUnavailable(c, "realtime updates are not available")
		return
	}
	defer unsubscribe()

	m, ok := h.loadOwnedModel(c, requestUser.ID)
	if !ok {
		return
	}
	set := realtime.NewModelSet([]dto.ModelView{converter.ModelToView(m)})

	prepareSSE(c)
	c.SSEvent("model", converter.ModelToView(m))
	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	heartbeatTicker := time.NewTicker(h.heartbeat)
	defer heartbeatTicker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeatTicker.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UnixMilli()})
			return true
		case change, ok := <-changes:
			if !ok {
				return false
			}
			if change.ModelID != m.ID {
				return true
			}
			view, deleted, changed := set.Apply(change)
			switch {
			case deleted:
				c.SSEvent("model_deleted", gin.H{"id": m.ID})
				return false
			case changed:
				c.SSEvent("model", view)
			}
			return true
		}
	})
}
