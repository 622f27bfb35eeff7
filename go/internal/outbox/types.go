package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one committed-allocation record awaiting (or done with)
// delivery. Rows are written in the same transaction as the state change
// they describe, so a commit and its event are inseparable.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	SeasonID  uuid.UUID       `json:"season_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// Publisher delivers an outbox event to the broker. Delivery is
// at-least-once; consumers dedup on the event id.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
