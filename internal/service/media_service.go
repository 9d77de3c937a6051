package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"headshots/internal/config"
	"headshots/internal/storage"
	"headshots/internal/utils"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// MaxUploadBytes 单张样本图片上限
	MaxUploadBytes = 10 << 20
	// MaxUploadFiles 单次上传的文件数上限
	MaxUploadFiles = 20

	maxOutputBytes = 20 << 20
)

var (
	ErrNotImage       = errors.New("file is not an image")
	ErrUploadTooLarge = fmt.Errorf("file exceeds %d bytes", MaxUploadBytes)
	ErrTooManyUploads = fmt.Errorf("at most %d files per upload", MaxUploadFiles)
	ErrNoUploads      = errors.New("no files uploaded")
)

// MediaService 负责样本上传与生成结果转存
type MediaService struct {
	storage      storage.Storage
	publicBase   string
	siteBase     string
	mirrorOutput bool
	httpClient   *http.Client
}

// NewMediaService 创建媒体服务实例
func NewMediaService(cfg config.Config, store storage.Storage) *MediaService {
	return &MediaService{
		storage:      store,
		publicBase:   cfg.StoragePublicBaseURL,
		siteBase:     cfg.PublicBaseURL(),
		mirrorOutput: cfg.StorageMirrorOutputs,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SaveUploads 保存用户上传的样本，返回可供训练服务访问的绝对 URL
func (s *MediaService) SaveUploads(ctx context.Context, files [][]byte) ([]string, error) {
	if s == nil || s.storage == nil {
		return nil, errors.New("storage is not configured")
	}
	if len(files) == 0 {
		return nil, ErrNoUploads
	}
	if len(files) > MaxUploadFiles {
		return nil, ErrTooManyUploads
	}

	for idx, data := range files {
		if len(data) > MaxUploadBytes {
			return nil, fmt.Errorf("file %d: %w", idx+1, ErrUploadTooLarge)
		}
		if !utils.IsImageMime(http.DetectContentType(data)) {
			return nil, fmt.Errorf("file %d: %w", idx+1, ErrNotImage)
		}
	}

	urls := make([]string, 0, len(files))
	for idx, data := range files {
		key, err := s.save(ctx, storage.CategorySamples, data, http.DetectContentType(data))
		if err != nil {
			return urls, fmt.Errorf("save file %d: %w", idx+1, err)
		}
		urls = append(urls, s.absoluteURL(key))
	}
	return urls, nil
}

// MirrorOutputs 把生成结果转存到自有存储；失败时保留原始地址并返回备注
func (s *MediaService) MirrorOutputs(ctx context.Context, sources []string) ([]string, string) {
	if s == nil || !s.mirrorOutput || s.storage == nil {
		return sources, ""
	}

	result := make([]string, 0, len(sources))
	var notes []string
	for idx, source := range sources {
		data, mimeType, err := s.resolveMediaPayload(ctx, source)
		if err != nil {
			logrus.WithError(err).WithField("index", idx).Warn("mirror_output_fetch_failed")
			notes = append(notes, fmt.Sprintf("output %d: %v", idx+1, err))
			result = append(result, source)
			continue
		}
		key, err := s.save(ctx, storage.CategoryOutputs, data, mimeType)
		if err != nil {
			logrus.WithError(err).WithField("index", idx).Warn("mirror_output_save_failed")
			notes = append(notes, fmt.Sprintf("output %d: %v", idx+1, err))
			result = append(result, source)
			continue
		}
		result = append(result, s.absoluteURL(key))
	}
	return result, appendStorageNotes("", notes)
}

func (s *MediaService) save(ctx context.Context, category string, data []byte, mimeType string) (string, error) {
	saveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ext := utils.ExtensionFromMime(mimeType)
	if ext == "" {
		ext = "bin"
	}
	return s.storage.Save(saveCtx, data, storage.SaveOptions{
		Category:     category,
		Extension:    ext,
		ContentType:  mimeType,
		BaseName:     computeInputBaseName(data),
		SkipIfExists: true,
	})
}

// resolveMediaPayload 支持 http(s) 地址与内联 base64
func (s *MediaService) resolveMediaPayload(ctx context.Context, payload string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(payload)
	if utils.IsHTTPURL(trimmed) {
		return utils.FetchImage(ctx, s.httpClient, trimmed, maxOutputBytes)
	}

	data, ext, err := utils.DecodeMediaPayload(trimmed)
	if err != nil {
		return nil, "", err
	}
	if ext == "bin" {
		return nil, "", ErrNotImage
	}
	return data, http.DetectContentType(data), nil
}

func (s *MediaService) absoluteURL(key string) string {
	public := storage.PublicURL(s.publicBase, key)
	if utils.IsHTTPURL(public) {
		return public
	}
	return strings.TrimRight(s.siteBase, "/") + public
}

func appendStorageNotes(existing string, notes []string) string {
	if len(notes) == 0 {
		return existing
	}
	joined := strings.Join(notes, "; ")
	if strings.TrimSpace(existing) == "" {
		return joined
	}
	return existing + "; " + joined
}

func computeInputBaseName(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
