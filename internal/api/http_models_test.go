package api

import (
	"context"
	"fmt"
	"headshots/internal/entity/converter"
	"headshots/internal/entity/db"
	"headshots/internal/entity/dto"
	"headshots/internal/realtime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// closeNotifyingRecorder 让 gin 的 c.Stream 可以在 ResponseRecorder 上运行
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestListAndGetModels(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	owner := s.createUser(t, "owner@example.com", 0)
	other := s.createUser(t, "other@example.com", 0)
	ctx := context.Background()

	m := &db.Model{UserID: owner.ID, Name: "Owner model", Type: "man"}
	if err := s.repo.ReserveModel(ctx, m, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	w := s.do(http.MethodGet, "/api/models", nil, "", s.sessionCookie(t, owner))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	list := decodeBody[struct {
		Models []dto.ModelView `json:"models"`
	}](t, w)
	if len(list.Models) != 1 || list.Models[0].Name != "Owner model" {
		t.Fatalf("unexpected models %+v", list.Models)
	}

	path := fmt.Sprintf("/api/models/%d", m.ID)
	if w := s.do(http.MethodGet, path, nil, "", s.sessionCookie(t, owner)); w.Code != http.StatusOK {
		t.Fatalf("expected owner to read model, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, path, nil, "", s.sessionCookie(t, other)); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other user, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/models/abc", nil, "", s.sessionCookie(t, owner)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", w.Code)
	}
}

func TestStreamModels(t *testing.T) {
	s := newTestServer(t, testConfig(t), "")
	user := s.createUser(t, "stream@example.com", 0)
	ctx := context.Background()

	existing := &db.Model{UserID: user.ID, Name: "Existing", Type: "man"}
	if err := s.repo.ReserveModel(ctx, existing, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req := httptest.NewRequest(http.MethodGet, "/api/realtime/models", nil).WithContext(reqCtx)
	req.AddCookie(s.sessionCookie(t, user))
	w := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.engine.ServeHTTP(w, req)
	}()

	// 等待订阅建立
	time.Sleep(100 * time.Millisecond)

	created := &db.Model{UserID: user.ID, Name: "Fresh", Type: "woman"}
	if err := s.repo.ReserveModel(ctx, created, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	full, err := s.repo.GetModel(ctx, created.ID)
	if err != nil {
		t.Fatalf("get model: %v", err)
	}
	if err := s.broker.Publish(ctx, realtime.ModelChange(realtime.EventInsert, converter.ModelToView(full))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.broker.Publish(ctx, realtime.Change{
		Event:   realtime.EventDelete,
		Table:   realtime.TableModels,
		UserID:  user.ID,
		ModelID: existing.ID,
	}); err != nil {
		t.Fatalf("publish delete: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after the request was cancelled")
	}

	body := w.Body.String()
	for _, want := range []string{"event:snapshot", "Existing", "event:model", "Fresh", "event:model_deleted", "event:ping"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in stream:\n%s", want, body)
		}
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %s", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("unexpected cache control %s", cc)
	}
}
