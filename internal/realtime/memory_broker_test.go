package realtime

import (
	"context"
	"headshots/internal/entity/dto"
	"testing"
	"time"
)

func TestMemoryBrokerDeliversToUser(t *testing.T) {
	broker := NewMemoryBroker()
	ctx := context.Background()

	mine, cancelMine, err := broker.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelMine()
	other, cancelOther, _ := broker.Subscribe(ctx, "u2")
	defer cancelOther()

	change := ModelChange(EventInsert, dto.ModelView{ID: 1, UserID: "u1"})
	if err := broker.Publish(ctx, change); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-mine:
		if got.ModelID != 1 || got.Event != EventInsert {
			t.Fatalf("unexpected change %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected change for u1")
	}

	select {
	case got := <-other:
		t.Fatalf("u2 must not receive u1 changes, got %+v", got)
	default:
	}
}

func TestMemoryBrokerCancelUnsubscribes(t *testing.T) {
	broker := NewMemoryBroker()
	_, cancel, _ := broker.Subscribe(context.Background(), "u1")
	if broker.subscriberCount("u1") != 1 {
		t.Fatal("expected one subscriber")
	}
	cancel()
	cancel()
	if broker.subscriberCount("u1") != 0 {
		t.Fatal("expected subscriber to be removed")
	}
}

func TestMemoryBrokerDropsForSlowConsumer(t *testing.T) {
	broker := NewMemoryBroker()
	ch, cancel, _ := broker.Subscribe(context.Background(), "u1")
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		if err := broker.Publish(context.Background(), Change{UserID: "u1", ModelID: uint(i + 1)}); err != nil {
			t.Fatalf("publish must not block or fail: %v", err)
		}
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("expected buffer to be full at %d, got %d", subscriberBuffer, len(ch))
	}
}
