package api

import (
	"fmt"
	"headshots/internal/utils"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DownloadImage 代理远程图片并强制浏览器下载，错误体沿用 {error} 结构
func (h *HTTPHandler) DownloadImage(c *gin.Context) {
	imageURL := strings.TrimSpace(c.Query("url"))
	if imageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image URL"})
		return
	}
	if !utils.IsHTTPURL(imageURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image URL"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		logrus.WithError(err).WithField("url", imageURL).Warn("download image request invalid")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to download image"})
		return
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("url", imageURL).Error("download image failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to download image"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.WithFields(logrus.Fields{
			"url":    imageURL,
			"status": resp.StatusCode,
		}).Warn("download image upstream error")
		c.JSON(resp.StatusCode, gin.H{"error": "Failed to fetch image: " + http.StatusText(resp.StatusCode)})
		return
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	filename := fmt.Sprintf("headshot-%d.%s", time.Now().UnixMilli(), utils.MimeSubtype(contentType, "jpeg"))

	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=\"%s\"", filename),
		"Cache-Control":       "no-cache",
	})
}
