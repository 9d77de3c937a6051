package api

import (
	"context"
	"encoding/json"
	"headshots/internal/astria"
	"headshots/internal/config"
	"headshots/internal/entity/db"
	"headshots/internal/mail"
	"headshots/internal/model"
	"headshots/internal/realtime"
	"headshots/internal/storage"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Configured() bool { return true }

func (m *recordingMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type testServer struct {
	handler *HTTPHandler
	engine  *gin.Engine
	repo    model.Repository
	broker  *realtime.MemoryBroker
	mailer  *recordingMailer
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		HTTPPort:             "3000",
		DBType:               model.DBTypeSQLite,
		DBPath:               filepath.Join(dir, "api.db"),
		StorageLocalDir:      filepath.Join(dir, "files"),
		StoragePublicBaseURL: "/files",
		AppWebhookSecret:     "hook-secret",
		JWTSecret:            "test-secret",
		JWTIssuer:            "headshots",
		JWTExpirationMinutes: 60,
		SessionCookieName:    "sb-session",
		AuthCodeTTLMinutes:   60,
	}
}

// newTestServer 组装处理器；astriaURL 为空时不创建 Astria 客户端
func newTestServer(t *testing.T, cfg config.Config, astriaURL string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	store, err := storage.NewLocalStorage(cfg.StorageLocalDir)
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}

	var client *astria.Client
	if astriaURL != "" {
		cfg.AstriaAPIKey = "astria-key"
		cfg.AstriaBaseURL = astriaURL
		cfg.AstriaTimeoutSeconds = 5
		client, err = astria.NewClient(cfg)
		if err != nil {
			t.Fatalf("init astria client: %v", err)
		}
	}

	broker := realtime.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	mailer := &recordingMailer{}

	h, err := NewHTTPHandler(Dependencies{
		Config:  cfg,
		Repo:    repo,
		Storage: store,
		Broker:  broker,
		Mailer:  mailer,
		Astria:  client,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	h.heartbeat = 50 * time.Millisecond

	r := gin.New()
	h.RegisterRoutes(r)
	return &testServer{handler: h, engine: r, repo: repo, broker: broker, mailer: mailer}
}

// createUser 创建已确认邮箱的用户，credits 大于 0 时写入积分行
func (s *testServer) createUser(t *testing.T, email string, credits int) *db.User {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	user := &db.User{Email: email, PasswordHash: "x", Provider: db.UserProviderEmail, EmailConfirmedAt: &now}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if credits > 0 {
		if _, _, err := s.repo.EnsureCredits(ctx, user.ID); err != nil {
			t.Fatalf("ensure credits: %v", err)
		}
		if err := s.repo.AddCredits(ctx, user.ID, credits); err != nil {
			t.Fatalf("add credits: %v", err)
		}
	}
	return user
}

func (s *testServer) sessionCookie(t *testing.T, user *db.User) *http.Cookie {
	t.Helper()
	token, _, err := s.handler.authManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return &http.Cookie{Name: "sb-session", Value: token}
}

func (s *testServer) do(method, target string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, target string, payload any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	switch v := payload.(type) {
	case nil:
	case string:
		body = strings.NewReader(v)
	default:
		bs, _ := json.Marshal(v)
		body = strings.NewReader(string(bs))
	}
	return s.do(method, target, body, "application/json", cookies...)
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	w := s.do(http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody[map[string]string](t, w)
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}
