package outbox

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// MockPublisher is an in-memory publisher for development and tests.
type MockPublisher struct {
	mu        sync.Mutex
	published []Event
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	p.published = append(p.published, event)
	p.mu.Unlock()

	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("season_id", event.SeasonID.String()).
		Msg("publishing event")
	return nil
}

// Published returns a copy of everything published so far.
func (p *MockPublisher) Published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.published))
	copy(out, p.published)
	return out
}
