package utils

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtensionFromMime(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/png", "png"},
		{"image/jpeg; charset=binary", "jpg"},
		{"IMAGE/WEBP", "webp"},
		{"text/plain", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtensionFromMime(tt.mime); got != tt.want {
			t.Errorf("ExtensionFromMime(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestMimeSubtype(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "jpeg"},
		{"image/png; charset=binary", "png"},
		{"", "jpeg"},
		{"garbage", "jpeg"},
	}
	for _, tt := range tests {
		if got := MimeSubtype(tt.contentType, "jpeg"); got != tt.want {
			t.Errorf("MimeSubtype(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestDecodeMediaPayload(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	data, ext, err := DecodeMediaPayload(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ext != "png" || string(data) != string(png) {
		t.Fatalf("unexpected decode result ext=%s", ext)
	}

	if _, _, err := DecodeMediaPayload("data:image/png;base64,"); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestFetchImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(png)
	}))
	defer server.Close()

	data, mimeType, err := FetchImage(context.Background(), server.Client(), server.URL+"/a.png", 1024)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if mimeType != "image/png" || len(data) != len(png) {
		t.Fatalf("unexpected result mime=%s len=%d", mimeType, len(data))
	}

	if _, _, err := FetchImage(context.Background(), server.Client(), server.URL+"/a.png", 4); err == nil {
		t.Fatal("expected size limit to be enforced")
	}
	if _, _, err := FetchImage(context.Background(), server.Client(), server.URL+"/missing", 1024); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, _, err := FetchImage(context.Background(), nil, "ftp://example.com/a.png", 1024); err == nil {
		t.Fatal("expected error for non-http url")
	}
}
