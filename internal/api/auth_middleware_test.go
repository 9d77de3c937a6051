package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGuardRedirect(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		hasSession bool
		want       string
	}{
		{name: "未登录访问overview", path: "/overview", want: "/login"},
		{name: "未登录访问模型详情", path: "/overview/models/12", want: "/login"},
		{name: "未登录访问积分页", path: "/get-credits", want: "/login"},
		{name: "前缀相似但不受保护", path: "/overviewer", want: ""},
		{name: "未登录访问首页", path: "/", want: ""},
		{name: "未登录访问登录页", path: "/login", want: ""},
		{name: "已登录访问登录页", path: "/login", hasSession: true, want: "/overview"},
		{name: "已登录访问登录失败页", path: "/login/failed", hasSession: true, want: ""},
		{name: "已登录访问overview", path: "/overview", hasSession: true, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuardRedirect(tt.path, tt.hasSession); got != tt.want {
				t.Fatalf("GuardRedirect(%q, %v) = %q, want %q", tt.path, tt.hasSession, got, tt.want)
			}
		})
	}
}

func TestSessionGuardPages(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	user := s.createUser(t, "pages@example.com", 3)
	cookie := s.sessionCookie(t, user)

	anonymous := s.do(http.MethodGet, "/overview", nil, "")
	if anonymous.Code != http.StatusFound || anonymous.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %s", anonymous.Code, anonymous.Header().Get("Location"))
	}

	login := s.do(http.MethodGet, "/login", nil, "", cookie)
	if login.Code != http.StatusFound || login.Header().Get("Location") != "/overview" {
		t.Fatalf("expected redirect to /overview, got %d %s", login.Code, login.Header().Get("Location"))
	}

	overview := s.do(http.MethodGet, "/overview", nil, "", cookie)
	if overview.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", overview.Code, overview.Body.String())
	}
	if ct := overview.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %s", ct)
	}
	if refreshed := responseCookie(overview, "sb-session"); refreshed == nil || refreshed.Value == "" {
		t.Fatal("expected refreshed session cookie")
	}

	// 无效 token 视为未登录
	bogus := &http.Cookie{Name: "sb-session", Value: "not-a-token"}
	if w := s.do(http.MethodGet, "/get-credits", nil, "", bogus); w.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect for invalid token, got %d", w.Code)
	}
}

func TestRequireSession(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	user := s.createUser(t, "me@example.com", 5)

	w := s.do(http.MethodGet, "/api/me", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	token, _, err := s.handler.authManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	bearer := httptest.NewRecorder()
	s.engine.ServeHTTP(bearer, req)
	if bearer.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", bearer.Code)
	}

	me := s.do(http.MethodGet, "/api/me", nil, "", s.sessionCookie(t, user))
	if me.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", me.Code)
	}
	body := decodeBody[struct {
		Credits int `json:"credits"`
	}](t, me)
	if body.Credits != 5 {
		t.Fatalf("expected 5 credits, got %d", body.Credits)
	}
}
