package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 32

// MemoryBroker is an in-process Broker. Slow subscribers miss changes
// instead of blocking publishers.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string][]chan Change
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string][]chan Change)}
}

func (b *MemoryBroker) Subscribe(_ context.Context, userID string) (<-chan Change, func(), error) {
	ch := make(chan Change, subscriberBuffer)
	b.mu.Lock()
	b.subs[userID] = append(b.subs[userID], ch)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.unsubscribe(userID, ch) })
	}
	return ch, cancel, nil
}

func (b *MemoryBroker) unsubscribe(userID string, target chan Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[userID]
	if len(current) == 0 {
		return
	}

	remaining := current[:0]
	for _, ch := range current {
		if ch == target {
			continue
		}
		remaining = append(remaining, ch)
	}

	if len(remaining) == 0 {
		delete(b.subs, userID)
		return
	}
	b.subs[userID] = remaining
}

func (b *MemoryBroker) Publish(_ context.Context, change Change) error {
	if change.UserID == "" {
		return nil
	}

	b.mu.Lock()
	channels := append([]chan Change(nil), b.subs[change.UserID]...)
	b.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- change:
		default:
			logrus.WithFields(logrus.Fields{
				"user_id":  change.UserID,
				"table":    change.Table,
				"event":    change.Event,
				"model_id": change.ModelID,
			}).Warn("dropping realtime change due to slow consumer")
		}
	}
	return nil
}

// subscriberCount is used by tests.
func (b *MemoryBroker) subscriberCount(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

func (b *MemoryBroker) Close() error {
	return nil
}
