package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// FetchImage downloads an image over http(s), refusing bodies larger than maxBytes.
func FetchImage(ctx context.Context, client *http.Client, imageURL string, maxBytes int64) ([]byte, string, error) {
	if !IsHTTPURL(imageURL) {
		return nil, "", fmt.Errorf("unsupported image url %q", imageURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxBytes)
	}
	if len(body) == 0 {
		return nil, "", errors.New("image payload empty")
	}

	mimeType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if !IsImageMime(mimeType) {
		mimeType = http.DetectContentType(body)
	}
	return body, mimeType, nil
}
