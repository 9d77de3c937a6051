package api

import (
	"context"
	"errors"
	"fmt"
	"headshots/internal/entity/dto"
	"headshots/internal/service"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UploadSamples POST /api/uploads，表单字段 files
func (h *HTTPHandler) UploadSamples(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "Unauthorized")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, ErrCodeInvalidUpload, "multipart form with files is required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["files[]"]
	}
	if len(headers) > service.MaxUploadFiles {
		BadRequest(c, ErrCodeInvalidUpload, service.ErrTooManyUploads.Error())
		return
	}

	files := make([][]byte, 0, len(headers))
	for _, header := range headers {
		data, err := readUpload(header)
		if err != nil {
			BadRequest(c, ErrCodeInvalidUpload, fmt.Sprintf("%s: %v", header.Filename, err))
			return
		}
		files = append(files, data)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	urls, err := h.mediaService.SaveUploads(ctx, files)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoUploads),
			errors.Is(err, service.ErrNotImage),
			errors.Is(err, service.ErrUploadTooLarge),
			errors.Is(err, service.ErrTooManyUploads):
			BadRequest(c, ErrCodeInvalidUpload, err.Error())
		default:
			logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to store uploads")
			InternalError(c, "failed to store uploads")
		}
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id": requestUser.ID,
		"count":   len(urls),
	}).Info("samples uploaded")
	c.JSON(http.StatusOK, dto.UploadResponse{URLs: urls})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > service.MaxUploadBytes {
		return nil, service.ErrUploadTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > service.MaxUploadBytes {
		return nil, service.ErrUploadTooLarge
	}
	return data, nil
}
