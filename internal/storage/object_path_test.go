package storage

import (
	"strings"
	"testing"
)

func TestBuildObjectPathNamed(t *testing.T) {
	got := buildObjectPath("Samples", "8B1A9953C4611296A827ABF8C47804D7", ".JPG")
	want := "samples/8b/8b1a9953c4611296a827abf8c47804d7.jpg"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestBuildObjectPathUnnamed(t *testing.T) {
	got := buildObjectPath("", "", "")
	if !strings.HasPrefix(got, "misc/") || !strings.HasSuffix(got, ".bin") {
		t.Fatalf("unexpected path %s", got)
	}
	if strings.Count(got, "/") != 4 {
		t.Fatalf("expected dated layout, got %s", got)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		key  string
		want string
	}{
		{name: "default base", base: "", key: "samples/ab/abc.jpg", want: "/files/samples/ab/abc.jpg"},
		{name: "relative base", base: "media/", key: "/a.png", want: "/media/a.png"},
		{name: "absolute base", base: "https://cdn.example.com/", key: "a.png", want: "https://cdn.example.com/a.png"},
		{name: "already absolute key", base: "/files", key: "https://x.test/a.png", want: "https://x.test/a.png"},
		{name: "empty key", base: "/files", key: " ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicURL(tt.base, tt.key); got != tt.want {
				t.Errorf("PublicURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
			}
		})
	}
}

func TestResolveContentType(t *testing.T) {
	if got := resolveContentType(SaveOptions{ContentType: "image/webp", Extension: "jpg"}); got != "image/webp" {
		t.Fatalf("expected explicit content type, got %s", got)
	}
	if got := resolveContentType(SaveOptions{Extension: "png"}); got != "image/png" {
		t.Fatalf("expected image/png, got %s", got)
	}
}
