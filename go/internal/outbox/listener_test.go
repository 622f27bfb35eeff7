package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// flakyPublisher fails the first N publishes, then delegates.
type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	inner    *MockPublisher
}

func (p *flakyPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker unavailable")
	}
	return p.inner.Publish(ctx, event)
}

func testEvent() Event {
	return Event{
		ID:        uuid.New(),
		SeasonID:  uuid.New(),
		EventType: "PickCommitted",
		Payload:   json.RawMessage(`{"pickNumber":1}`),
		CreatedAt: time.Now().UTC(),
	}
}

func testListener(p Publisher) *Listener {
	cfg := DefaultListenerConfig()
	cfg.MaxRetries = 3
	cfg.RetryDelay = time.Millisecond
	return &Listener{publisher: p, cfg: cfg}
}

func TestPublishWithRetryRecovers(t *testing.T) {
	pub := &flakyPublisher{failures: 2, inner: NewMockPublisher()}
	l := testListener(pub)

	event := testEvent()
	if err := l.publishWithRetry(context.Background(), event); err != nil {
		t.Fatalf("publishWithRetry: %v", err)
	}

	if pub.calls != 3 {
		t.Errorf("calls = %d, want 3", pub.calls)
	}
	published := pub.inner.Published()
	if len(published) != 1 {
		t.Fatalf("published %d events, want 1", len(published))
	}
	if published[0].ID != event.ID {
		t.Errorf("published event %s, want %s", published[0].ID, event.ID)
	}
}

func TestPublishWithRetryExhausts(t *testing.T) {
	pub := &flakyPublisher{failures: 100, inner: NewMockPublisher()}
	l := testListener(pub)

	err := l.publishWithRetry(context.Background(), testEvent())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "after 4 attempts") {
		t.Errorf("error = %v, want attempt count in message", err)
	}
	if pub.calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", pub.calls)
	}
	if len(pub.inner.Published()) != 0 {
		t.Error("no event should have been published")
	}
}

func TestPublishWithRetryHonorsCancel(t *testing.T) {
	pub := &flakyPublisher{failures: 100, inner: NewMockPublisher()}
	l := testListener(pub)
	l.cfg.RetryDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.publishWithRetry(ctx, testEvent())
	}()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("publishWithRetry did not return after cancel")
	}
}
