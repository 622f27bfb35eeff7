package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftType defines how turn order cycles across rounds.
type DraftType string

const (
	DraftTypeSnake  DraftType = "SNAKE"
	DraftTypeLinear DraftType = "LINEAR"
)

// SessionStatus defines the status of a draft session.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusPaused     SessionStatus = "PAUSED"
	SessionStatusComplete   SessionStatus = "COMPLETE"
)

// SessionSettings holds JSONB configuration for a draft session.
type SessionSettings struct {
	DraftType       DraftType   `json:"draft_type"`
	Rounds          int         `json:"rounds"`
	DraftOrder      []uuid.UUID `json:"draft_order"`
	TimePerPickSec  int         `json:"time_per_pick_sec"`
	TurnEnforcement bool        `json:"turn_enforcement"`
	AutoDraft       bool        `json:"auto_draft"`
}

// TotalPicks returns the number of picks the session runs for.
func (s SessionSettings) TotalPicks() int {
	return s.Rounds * len(s.DraftOrder)
}

// DraftSession is the per-season draft state machine. PicksMade is the
// count of committed picks and doubles as the season-scoped monotonic
// source for pick sequence numbers: the engine increments it in the same
// transaction that inserts the PickRecord.
type DraftSession struct {
	ID          uuid.UUID       `json:"id"`
	SeasonID    uuid.UUID       `json:"season_id"`
	Status      SessionStatus   `json:"status"`
	Settings    SessionSettings `json:"settings"`
	PicksMade   int             `json:"picks_made"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
