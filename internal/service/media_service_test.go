package service

import (
	"context"
	"encoding/base64"
	"errors"
	"headshots/internal/config"
	"headshots/internal/storage"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newTestMediaService(t *testing.T, mirror bool) (*MediaService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	cfg := config.Config{
		HTTPPort:             "3000",
		StoragePublicBaseURL: "/files",
		StorageMirrorOutputs: mirror,
	}
	return NewMediaService(cfg, store), dir
}

func TestAppendStorageNotes(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		notes    []string
		expected string
	}{
		{
			name:     "空已有错误，空备注",
			existing: "",
			notes:    []string{},
			expected: "",
		},
		{
			name:     "空已有错误，有备注",
			existing: "",
			notes:    []string{"note1", "note2"},
			expected: "note1; note2",
		},
		{
			name:     "有已有错误，空备注",
			existing: "existing error",
			notes:    nil,
			expected: "existing error",
		},
		{
			name:     "有已有错误，有备注",
			existing: "existing error",
			notes:    []string{"note1"},
			expected: "existing error; note1",
		},
		{
			name:     "空白已有错误，有备注",
			existing: "   ",
			notes:    []string{"note1"},
			expected: "note1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := appendStorageNotes(tt.existing, tt.notes)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestComputeInputBaseName(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "空数据",
			data:     []byte{},
			expected: "d41d8cd98f00b204e9800998ecf8427e",
		},
		{
			name:     "Hello",
			data:     []byte("Hello"),
			expected: "8b1a9953c4611296a827abf8c47804d7",
		},
		{
			name:     "测试数据",
			data:     []byte("test data"),
			expected: "eb733a00c0c9d336e65691a37ab54293",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeInputBaseName(tt.data); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSaveUploadsReusesIdenticalContent(t *testing.T) {
	svc, dir := newTestMediaService(t, false)

	urls, err := svc.SaveUploads(context.Background(), [][]byte{pngHeader, pngHeader})
	if err != nil {
		t.Fatalf("save uploads: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d", len(urls))
	}
	if urls[0] != urls[1] {
		t.Fatalf("expected identical uploads to share a url, got %q and %q", urls[0], urls[1])
	}

	base := computeInputBaseName(pngHeader)
	want := "http://localhost:3000/files/samples/" + base[:2] + "/" + base + ".png"
	if urls[0] != want {
		t.Fatalf("expected %q, got %q", want, urls[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "samples", base[:2], base+".png")); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}
}

func TestSaveUploadsValidation(t *testing.T) {
	svc, _ := newTestMediaService(t, false)

	tooMany := make([][]byte, MaxUploadFiles+1)
	for i := range tooMany {
		tooMany[i] = pngHeader
	}

	tests := []struct {
		name  string
		files [][]byte
		want  error
	}{
		{name: "无文件", files: nil, want: ErrNoUploads},
		{name: "非图片", files: [][]byte{[]byte("plain text")}, want: ErrNotImage},
		{name: "超出大小", files: [][]byte{make([]byte, MaxUploadBytes+1)}, want: ErrUploadTooLarge},
		{name: "超出数量", files: tooMany, want: ErrTooManyUploads},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveUploads(context.Background(), tt.files)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMirrorOutputsFallsBackToSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing.png") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer server.Close()

	svc, _ := newTestMediaService(t, true)
	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	sources := []string{server.URL + "/ok.png", server.URL + "/missing.png", inline}

	got, notes := svc.MirrorOutputs(context.Background(), sources)
	if len(got) != 3 {
		t.Fatalf("expected 3 urls, got %d", len(got))
	}
	if !strings.HasPrefix(got[0], "http://localhost:3000/files/outputs/") {
		t.Fatalf("expected mirrored url, got %q", got[0])
	}
	if got[1] != sources[1] {
		t.Fatalf("expected fallback to source url, got %q", got[1])
	}
	if got[2] != got[0] {
		t.Fatalf("expected identical content to share a key, got %q and %q", got[2], got[0])
	}
	if !strings.Contains(notes, "output 2") {
		t.Fatalf("expected note for failed output, got %q", notes)
	}
}

func TestMirrorOutputsDisabled(t *testing.T) {
	svc, _ := newTestMediaService(t, false)
	sources := []string{"https://cdn.example.com/a.png"}
	got, notes := svc.MirrorOutputs(context.Background(), sources)
	if len(got) != 1 || got[0] != sources[0] || notes != "" {
		t.Fatalf("expected sources untouched, got %v %q", got, notes)
	}
}
