package api

import (
	"bytes"
	"headshots/internal/entity/dto"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestDownloadImage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer upstream.Close()

	s := newTestServer(t, testConfig(t), "")

	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantError   string
		wantPayload bool
	}{
		{name: "缺少url", query: "", wantStatus: http.StatusBadRequest, wantError: "Missing image URL"},
		{name: "非http地址", query: "file:///etc/passwd", wantStatus: http.StatusBadRequest, wantError: "Invalid image URL"},
		{name: "上游404", query: upstream.URL + "/missing.png", wantStatus: http.StatusNotFound, wantError: "Failed to fetch image: Not Found"},
		{name: "正常下载", query: upstream.URL + "/ok.png", wantStatus: http.StatusOK, wantPayload: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/download-image?url="+url.QueryEscape(tt.query), nil, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantError != "" {
				body := decodeBody[map[string]string](t, w)
				if body["error"] != tt.wantError {
					t.Fatalf("expected error %q, got %q", tt.wantError, body["error"])
				}
				return
			}
			if !bytes.Equal(w.Body.Bytes(), pngBytes) {
				t.Fatalf("unexpected body %v", w.Body.Bytes())
			}
			disposition := w.Header().Get("Content-Disposition")
			if !strings.HasPrefix(disposition, `attachment; filename="headshot-`) || !strings.HasSuffix(disposition, `.png"`) {
				t.Fatalf("unexpected disposition %s", disposition)
			}
			if w.Header().Get("Cache-Control") != "no-cache" {
				t.Fatalf("unexpected cache control %s", w.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestUploadSamples(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	user := s.createUser(t, "upload@example.com", 0)
	cookie := s.sessionCookie(t, user)

	build := func(files map[string][]byte) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		for name, data := range files {
			part, err := writer.CreateFormFile("files", name)
			if err != nil {
				t.Fatalf("create part: %v", err)
			}
			_, _ = part.Write(data)
		}
		_ = writer.Close()
		return &buf, writer.FormDataContentType()
	}

	body, contentType := build(map[string][]byte{"a.png": pngBytes})
	w := s.do(http.MethodPost, "/api/uploads", body, contentType, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[dto.UploadResponse](t, w)
	if len(resp.URLs) != 1 || !strings.HasPrefix(resp.URLs[0], "http://localhost:3000/files/samples/") {
		t.Fatalf("unexpected urls %v", resp.URLs)
	}

	body, contentType = build(map[string][]byte{"notes.txt": []byte("hello")})
	w = s.do(http.MethodPost, "/api/uploads", body, contentType, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image, got %d", w.Code)
	}

	body, contentType = build(map[string][]byte{"a.png": pngBytes})
	if w := s.do(http.MethodPost, "/api/uploads", body, contentType); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}
}
