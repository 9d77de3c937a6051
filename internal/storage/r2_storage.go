package storage

import (
	"errors"
	"fmt"
	"headshots/internal/config"
	"strings"
)

// R2 兼容 S3 协议，只需换成账号专属的 endpoint，并且必须使用 path-style
const r2EndpointTemplate = "https://%s.r2.cloudflarestorage.com"

func NewR2Storage(cfg config.Config) (Storage, error) {
	opts, bucket, err := r2ClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: create R2 client: %w", err)
	}
	return &remoteS3Storage{
		client: client,
		bucket: bucket,
		prefix: trimPrefix(cfg.StorageR2Prefix),
	}, nil
}

// r2ClientOptions 校验 R2 配置；未显式配置 endpoint 时由 account id 推导
func r2ClientOptions(cfg config.Config) (s3ClientOptions, string, error) {
	bucket := strings.TrimSpace(cfg.StorageR2Bucket)
	if bucket == "" {
		return s3ClientOptions{}, "", errors.New("storage: missing R2 bucket")
	}

	opts := s3ClientOptions{
		Region:          strings.TrimSpace(cfg.StorageR2Region),
		Endpoint:        strings.TrimSpace(cfg.StorageR2Endpoint),
		AccessKeyID:     strings.TrimSpace(cfg.StorageR2AccessKeyID),
		SecretAccessKey: strings.TrimSpace(cfg.StorageR2SecretAccessKey),
		ForcePathStyle:  true,
	}
	if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return s3ClientOptions{}, "", errors.New("storage: missing R2 credentials")
	}
	if opts.Region == "" {
		opts.Region = "auto"
	}
	if opts.Endpoint == "" {
		accountID := strings.TrimSpace(cfg.StorageR2AccountID)
		if accountID == "" {
			return s3ClientOptions{}, "", errors.New("storage: missing R2 endpoint or account id")
		}
		opts.Endpoint = fmt.Sprintf(r2EndpointTemplate, accountID)
	}
	return opts, bucket, nil
}
