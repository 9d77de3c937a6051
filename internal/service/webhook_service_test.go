package service

import (
	"context"
	"errors"
	"headshots/internal/config"
	"headshots/internal/entity/db"
	"headshots/internal/entity/dto"
	"headshots/internal/mail"
	"headshots/internal/realtime"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"
)

type recordingMailer struct {
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Configured() bool {
	return true
}

func TestWebhookAuthorize(t *testing.T) {
	repo := newServiceTestRepo(t)
	owner := newServiceTestUser(t, repo, "owner@example.com", 0)
	other := newServiceTestUser(t, repo, "other@example.com", 0)
	m := &db.Model{UserID: owner.ID, Name: "m", Type: "man"}
	if err := repo.ReserveModel(context.Background(), m, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	modelID := strconv.FormatUint(uint64(m.ID), 10)

	svc := NewWebhookService(config.Config{AppWebhookSecret: "Secret"}, repo, nil, nil, nil)

	tests := []struct {
		name       string
		params     WebhookParams
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "缺少 secret",
			params:     WebhookParams{UserID: owner.ID, ModelID: modelID},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Malformed URL, no webhook_secret detected!",
		},
		{
			name:       "secret 不匹配",
			params:     WebhookParams{UserID: owner.ID, ModelID: modelID, WebhookSecret: "wrong"},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Unauthorized!",
		},
		{
			name:       "缺少 user_id",
			params:     WebhookParams{ModelID: modelID, WebhookSecret: "secret"},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Malformed URL, no user_id detected!",
		},
		{
			name:       "非法 model_id",
			params:     WebhookParams{UserID: owner.ID, ModelID: "abc", WebhookSecret: "secret"},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Malformed URL, no model_id detected!",
		},
		{
			name:       "未知用户",
			params:     WebhookParams{UserID: "nobody", ModelID: modelID, WebhookSecret: "secret"},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Unauthorized",
		},
		{
			name:       "模型不属于该用户",
			params:     WebhookParams{UserID: other.ID, ModelID: modelID, WebhookSecret: "secret"},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Model not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Authorize(context.Background(), tt.params)
			var we *WebhookError
			if !errors.As(err, &we) {
				t.Fatalf("expected *WebhookError, got %v", err)
			}
			if we.StatusCode != tt.wantStatus || we.Message != tt.wantMsg {
				t.Fatalf("expected %d %q, got %d %q", tt.wantStatus, tt.wantMsg, we.StatusCode, we.Message)
			}
		})
	}

	user, got, err := svc.Authorize(context.Background(), WebhookParams{UserID: owner.ID, ModelID: modelID, WebhookSecret: "SECRET"})
	if err != nil {
		t.Fatalf("expected case-insensitive secret to pass, got %v", err)
	}
	if user.ID != owner.ID || got.ID != m.ID {
		t.Fatalf("unexpected authorize result %s %d", user.ID, got.ID)
	}
}

func TestHandleTrainedFinishesAndMails(t *testing.T) {
	repo := newServiceTestRepo(t)
	owner := newServiceTestUser(t, repo, "trained@example.com", 0)
	m := &db.Model{UserID: owner.ID, Name: "Portraits", Type: "woman"}
	if err := repo.ReserveModel(context.Background(), m, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	broker := realtime.NewMemoryBroker()
	changes, cancel, _ := broker.Subscribe(context.Background(), owner.ID)
	defer cancel()
	mailer := &recordingMailer{}
	cfg := config.Config{AppWebhookSecret: "s", DeploymentURL: "headshots.example.com"}
	svc := NewWebhookService(cfg, repo, broker, mailer, nil)

	var payload dto.TuneWebhookPayload
	payload.Tune.ID = "555"
	params := WebhookParams{UserID: owner.ID, ModelID: strconv.FormatUint(uint64(m.ID), 10), WebhookSecret: "s"}
	if err := svc.HandleTrained(context.Background(), params, payload); err != nil {
		t.Fatalf("handle trained: %v", err)
	}

	stored, _ := repo.GetModel(context.Background(), m.ID)
	if stored.Status != db.ModelStatusFinished || stored.TuneID != "555" {
		t.Fatalf("unexpected model state %s %s", stored.Status, stored.TuneID)
	}

	select {
	case change := <-changes:
		if change.Event != realtime.EventUpdate || change.Model == nil || change.Model.Status != db.ModelStatusFinished {
			t.Fatalf("unexpected change %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("expected update change")
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.To != owner.Email || msg.Subject != "Your model was successfully trained!" {
		t.Fatalf("unexpected mail %+v", msg)
	}
	wantLink := "https://headshots.example.com/overview/models/" + strconv.FormatUint(uint64(m.ID), 10)
	if !strings.Contains(msg.HTML, wantLink) {
		t.Fatalf("expected link %q in %q", wantLink, msg.HTML)
	}
}

func TestHandlePromptStoresImages(t *testing.T) {
	repo := newServiceTestRepo(t)
	owner := newServiceTestUser(t, repo, "prompt@example.com", 0)
	m := &db.Model{UserID: owner.ID, Name: "m", Type: "man"}
	if err := repo.ReserveModel(context.Background(), m, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	broker := realtime.NewMemoryBroker()
	changes, cancel, _ := broker.Subscribe(context.Background(), owner.ID)
	defer cancel()
	media, _ := newTestMediaService(t, false)
	svc := NewWebhookService(config.Config{AppWebhookSecret: "s"}, repo, broker, nil, media)

	var payload dto.PromptWebhookPayload
	payload.Prompt.ID = "p1"
	payload.Prompt.Images = []string{"https://cdn.example.com/1.png", " ", "https://cdn.example.com/2.png"}
	params := WebhookParams{UserID: owner.ID, ModelID: strconv.FormatUint(uint64(m.ID), 10), WebhookSecret: "s"}

	created, err := svc.HandlePrompt(context.Background(), params, payload)
	if err != nil {
		t.Fatalf("handle prompt: %v", err)
	}
	if len(created) != 2 || created[0].ID == 0 || created[0].PromptID != "p1" {
		t.Fatalf("unexpected images %+v", created)
	}

	images, _ := repo.ListImages(context.Background(), m.ID)
	if len(images) != 2 {
		t.Fatalf("expected 2 stored images, got %d", len(images))
	}

	for i := 0; i < 2; i++ {
		select {
		case change := <-changes:
			if change.Table != realtime.TableImages || change.Event != realtime.EventInsert || change.Image == nil {
				t.Fatalf("unexpected change %+v", change)
			}
		case <-time.After(time.Second):
			t.Fatalf("expected image change %d", i+1)
		}
	}
}
