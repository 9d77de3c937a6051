package api

import (
	"context"
	"headshots/internal/entity/db"
	"headshots/internal/entity/dto"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestSignUpAndSignIn(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	creds := map[string]string{"email": "New.User@Example.com", "password": "correct-horse-42"}

	w := s.doJSON(http.MethodPost, "/auth/sign-up", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if msg := decodeBody[dto.MessageResponse](t, w); msg.Message != "Check your email to continue the sign in process" {
		t.Fatalf("unexpected message %q", msg.Message)
	}
	sent := s.mailer.messages()
	if len(sent) != 1 || sent[0].To != "new.user@example.com" {
		t.Fatalf("expected confirmation email, got %+v", sent)
	}
	if !strings.Contains(sent[0].HTML, "/auth/callback?") {
		t.Fatalf("confirmation email has no callback link: %s", sent[0].HTML)
	}

	dup := s.doJSON(http.MethodPost, "/auth/sign-up", creds)
	if dup.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate, got %d", dup.Code)
	}
	if body := decodeBody[APIError](t, dup); body.Message != "User already registered" {
		t.Fatalf("unexpected message %q", body.Message)
	}

	unconfirmed := s.doJSON(http.MethodPost, "/auth/sign-in", creds)
	if unconfirmed.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before confirmation, got %d", unconfirmed.Code)
	}

	user, err := s.repo.GetUserByEmail(context.Background(), "new.user@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	code, err := s.handler.issueAuthCode(context.Background(), user.ID, db.AuthCodePurposeSignup)
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	confirm := s.do(http.MethodGet, "/auth/callback?type=signup&next=%2Foverview&code="+url.QueryEscape(code), nil, "")
	if confirm.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", confirm.Code)
	}

	w = s.doJSON(http.MethodPost, "/auth/sign-in", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[dto.AuthResponse](t, w)
	if resp.User.Email != "new.user@example.com" || !resp.User.EmailConfirmed {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if cookie := responseCookie(w, "sb-session"); cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookie)
	}

	wrong := s.doJSON(http.MethodPost, "/auth/sign-in", map[string]string{"email": creds["email"], "password": "nope-nope-nope"})
	if wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", wrong.Code)
	}
	if body := decodeBody[APIError](t, wrong); body.Message != "Invalid login credentials" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestAuthCallback(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	ctx := context.Background()

	user := &db.User{Email: "callback@example.com", PasswordHash: "x", Provider: db.UserProviderEmail}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Run("没有code直接跳转", func(t *testing.T) {
		w := s.do(http.MethodGet, "/auth/callback?next=%2Foverview", nil, "")
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/overview" {
			t.Fatalf("unexpected redirect %d %s", w.Code, w.Header().Get("Location"))
		}
	})

	t.Run("无效code", func(t *testing.T) {
		w := s.do(http.MethodGet, "/auth/callback?code=bogus", nil, "")
		if w.Header().Get("Location") != "/login/failed?err=AuthApiError" {
			t.Fatalf("unexpected redirect %s", w.Header().Get("Location"))
		}
	})

	t.Run("注册确认创建积分行", func(t *testing.T) {
		code, err := s.handler.issueAuthCode(ctx, user.ID, db.AuthCodePurposeSignup)
		if err != nil {
			t.Fatalf("issue code: %v", err)
		}
		w := s.do(http.MethodGet, "/auth/callback?type=signup&next=%2Fget-credits&code="+url.QueryEscape(code), nil, "")
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/get-credits" {
			t.Fatalf("unexpected redirect %d %s", w.Code, w.Header().Get("Location"))
		}
		if responseCookie(w, "sb-session") == nil {
			t.Fatal("expected session cookie")
		}

		credit, err := s.repo.GetCredits(ctx, user.ID)
		if err != nil {
			t.Fatalf("expected credits row: %v", err)
		}
		if credit.Credits != 0 {
			t.Fatalf("expected 0 credits, got %d", credit.Credits)
		}
		confirmed, err := s.repo.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("get user: %v", err)
		}
		if !confirmed.Confirmed() {
			t.Fatal("expected email to be confirmed")
		}

		reused := s.do(http.MethodGet, "/auth/callback?type=signup&code="+url.QueryEscape(code), nil, "")
		if reused.Header().Get("Location") != "/login/failed?err=AuthApiError" {
			t.Fatalf("code must be single use, got %s", reused.Header().Get("Location"))
		}
	})

	t.Run("外部next被忽略", func(t *testing.T) {
		code, err := s.handler.issueAuthCode(ctx, user.ID, db.AuthCodePurposeRecovery)
		if err != nil {
			t.Fatalf("issue code: %v", err)
		}
		w := s.do(http.MethodGet, "/auth/callback?next=https%3A%2F%2Fevil.example.com&code="+url.QueryEscape(code), nil, "")
		if w.Header().Get("Location") != "/" {
			t.Fatalf("expected /, got %s", w.Header().Get("Location"))
		}
	})
}

func TestResetPasswordAlwaysSucceeds(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	s.createUser(t, "known@example.com", 0)

	for _, email := range []string{"known@example.com", "unknown@example.com"} {
		w := s.doJSON(http.MethodPost, "/auth/reset-password", map[string]string{"email": email})
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", email, w.Code)
		}
	}
	if sent := s.mailer.messages(); len(sent) != 1 || sent[0].To != "known@example.com" {
		t.Fatalf("expected one recovery email, got %+v", sent)
	}

	invalid := s.doJSON(http.MethodPost, "/auth/reset-password", map[string]string{"email": "not-an-email"})
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", invalid.Code)
	}
}

func TestSafeNextPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/overview", "/overview"},
		{"/overview/models/3?tab=images", "/overview/models/3?tab=images"},
		{"", "/"},
		{"overview", "/"},
		{"//evil.example.com", "/"},
		{"/\\evil.example.com", "/"},
		{"https://evil.example.com/overview", "/"},
	}
	for _, tt := range tests {
		if got := safeNextPath(tt.in); got != tt.want {
			t.Errorf("safeNextPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
