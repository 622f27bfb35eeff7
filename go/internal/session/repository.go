package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/sqlutil"
)

// ErrSessionNotFound is returned when a season has no draft session.
var ErrSessionNotFound = errors.New("draft session not found")

const sessionColumns = `id, season_id, status, settings, picks_made,
	started_at, completed_at, created_at, updated_at`

type Repository struct {
	db sqlutil.DBTX
}

func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.DraftSession, error) {
	settingsBytes, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session settings: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO draft_sessions (id, season_id, status, settings, picks_made)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING `+sessionColumns,
		req.ID, req.SeasonID, models.SessionStatusNotStarted, settingsBytes,
	)
	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft session: %w", err)
	}
	return s, nil
}

func (r *Repository) GetSessionBySeason(ctx context.Context, seasonID uuid.UUID) (*models.DraftSession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM draft_sessions
		WHERE season_id = $1`,
		seasonID,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get draft session: %w", err)
	}
	return s, nil
}

// GetSessionForUpdate locks the session row for the rest of the
// transaction. The allocation engine takes this lock before assigning a
// sequence number so concurrent picks in one season serialize here and
// nowhere else.
func (r *Repository) GetSessionForUpdate(ctx context.Context, seasonID uuid.UUID) (*models.DraftSession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM draft_sessions
		WHERE season_id = $1
		FOR UPDATE`,
		seasonID,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to lock draft session: %w", err)
	}
	return s, nil
}

// AdvancePick increments the committed-pick counter and returns the new
// count, which is the sequence number of the pick being committed.
// Running inside the commit transaction makes the sequence gap-free:
// a rolled-back pick rolls the counter back with it.
func (r *Repository) AdvancePick(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var picksMade int
	err := r.db.QueryRowContext(ctx, `
		UPDATE draft_sessions
		SET picks_made = picks_made + 1, updated_at = now()
		WHERE id = $1
		RETURNING picks_made`,
		sessionID,
	).Scan(&picksMade)
	if err != nil {
		return 0, fmt.Errorf("failed to advance pick counter: %w", err)
	}
	return picksMade, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus) (*models.DraftSession, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE draft_sessions
		SET status = $1,
		    started_at = CASE WHEN $1 = $2 AND started_at IS NULL THEN now() ELSE started_at END,
		    completed_at = CASE WHEN $1 = $3 THEN now() ELSE completed_at END,
		    updated_at = now()
		WHERE id = $4
		RETURNING `+sessionColumns,
		status, models.SessionStatusInProgress, models.SessionStatusComplete, sessionID,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to update session status: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.DraftSession, error) {
	var s models.DraftSession
	var settingsBytes []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&s.ID, &s.SeasonID, &s.Status, &settingsBytes, &s.PicksMade,
		&startedAt, &completedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(settingsBytes, &s.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session settings: %w", err)
	}
	s.StartedAt = sqlutil.FromSqlTime(startedAt)
	s.CompletedAt = sqlutil.FromSqlTime(completedAt)
	return &s, nil
}
