package events

import (
	"time"
)

// Event types carried on the draft outbox. Payloads are shared between the
// allocation engine (producer) and the gateway/orchestrator consumers.

const (
	TypePickCommitted      = "PickCommitted"
	TypeDraftStarted       = "DraftStarted"
	TypeDraftPaused        = "DraftPaused"
	TypeDraftResumed       = "DraftResumed"
	TypeDraftCompleted     = "DraftCompleted"
	TypeEntryStatusChanged = "EntryStatusChanged"
)

// PickCommittedPayload is emitted after a pick transaction commits.
// Consumers treat it as a hint to refresh authoritative state; the pool
// and budget tables remain the source of truth.
type PickCommittedPayload struct {
	PickID          string    `json:"pick_id"`
	SeasonID        string    `json:"season_id"`
	TeamID          string    `json:"team_id"`
	EntryID         string    `json:"entry_id"`
	EntryName       string    `json:"entry_name"`
	PointCost       int       `json:"point_cost"`
	Round           int       `json:"round"`
	PickNumber      int       `json:"pick_number"`
	RemainingPoints int       `json:"remaining_points"`
	CommittedAt     time.Time `json:"committed_at"`
}

// DraftStartedPayload is emitted when a session moves to IN_PROGRESS.
type DraftStartedPayload struct {
	SeasonID    string    `json:"season_id"`
	SessionID   string    `json:"session_id"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftPausedPayload is emitted when a session is paused.
type DraftPausedPayload struct {
	SeasonID string    `json:"season_id"`
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// DraftResumedPayload is emitted when a paused session resumes.
type DraftResumedPayload struct {
	SeasonID  string    `json:"season_id"`
	ResumedAt time.Time `json:"resumed_at"`
}

// DraftCompletedPayload is emitted when the final pick of a session lands.
type DraftCompletedPayload struct {
	SeasonID    string    `json:"season_id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
}

// EntryStatusChangedPayload is emitted for administrative pool changes
// (ban / unban / mark unavailable), never for drafts.
type EntryStatusChangedPayload struct {
	SeasonID  string    `json:"season_id"`
	EntryID   string    `json:"entry_id"`
	EntryName string    `json:"entry_name"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}
