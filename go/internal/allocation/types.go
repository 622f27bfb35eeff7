package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

// SubmitPickRequest is the closed, validated shape of a pick submission.
// Web UI and bot adapters all funnel through it; there is no privileged
// path around the engine.
type SubmitPickRequest struct {
	TeamID    uuid.UUID `json:"team_id"`
	SeasonID  uuid.UUID `json:"season_id"`
	EntryName string    `json:"entry_name"`

	// Hints supplied by automated submitters (Discord bot). Audit
	// annotation only; never trusted for eligibility.
	RoundHint *int    `json:"round_hint,omitempty"`
	PickHint  *int    `json:"pick_hint,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// PickReceipt is returned on a committed pick: the immutable record plus
// the team's post-commit budget snapshot.
type PickReceipt struct {
	Pick   *models.PickRecord `json:"pick"`
	Budget *models.Budget     `json:"budget"`
}

// Store opens atomic pick transactions against durable state.
type Store interface {
	// RunAtomic executes fn as one all-or-nothing transaction. A commit
	// lost to concurrent writes surfaces as ErrTxConflict.
	RunAtomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional surface the engine validates and commits
// through. Every mutation is conditional at the store so a stale read
// can never produce an inconsistent commit.
type Tx interface {
	// SessionBySeason reads the season's draft session without locking.
	SessionBySeason(ctx context.Context, seasonID uuid.UUID) (*models.DraftSession, error)
	// EntryByName resolves a pool entry by case-insensitive name.
	EntryByName(ctx context.Context, seasonID uuid.UUID, name string) (*models.PoolEntry, error)
	// ClaimEntry atomically moves an entry available -> drafted.
	// Returns false when the status predicate no longer holds.
	ClaimEntry(ctx context.Context, entryID, teamID uuid.UUID, at time.Time) (bool, error)
	// Budget reads the team's season budget.
	Budget(ctx context.Context, teamID, seasonID uuid.UUID) (*models.Budget, error)
	// DebitBudget conditionally charges amount; false means the charge
	// would overdraw the budget.
	DebitBudget(ctx context.Context, teamID, seasonID uuid.UUID, amount int) (*models.Budget, bool, error)
	// AdvancePick increments the session's committed-pick counter and
	// returns the assigned sequence number. The row lock it takes is
	// held to commit, which is what keeps sequences gap-free.
	AdvancePick(ctx context.Context, sessionID uuid.UUID) (int, error)
	// CompleteSession marks the session complete after the final pick.
	CompleteSession(ctx context.Context, sessionID uuid.UUID) error
	// InsertPickRecord appends the immutable audit row.
	InsertPickRecord(ctx context.Context, rec models.PickRecord) (*models.PickRecord, error)
	// InsertEvent stages a notifier event in the same transaction.
	InsertEvent(ctx context.Context, seasonID uuid.UUID, eventType string, payload []byte) error
}

// LeagueResolver resolves seasons and teams. Lookups are read-only and
// existence is stable during a draft, so they run outside the pick
// transaction.
type LeagueResolver interface {
	GetSeason(ctx context.Context, id uuid.UUID) (*models.Season, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
}
