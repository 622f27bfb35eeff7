package gateway

import (
	"encoding/json"
	"time"
)

// DraftEvent is the envelope pushed to WebSocket clients. Type carries
// the outbox event type names; Data is the event payload verbatim.
type DraftEvent struct {
	ID        string          `json:"id"`
	SeasonID  string          `json:"season_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// TypeSnapshot is sent once per connection, before any broker events.
// Clients render from it and treat later events as refresh hints, so a
// reconnect never leaves them tracking missed deltas.
const TypeSnapshot = "Snapshot"

// SnapshotPayload is the Data of a TypeSnapshot event.
type SnapshotPayload struct {
	Session     json.RawMessage `json:"session"`
	CurrentTurn json.RawMessage `json:"current_turn,omitempty"`
	PicksMade   int             `json:"picks_made"`
}
