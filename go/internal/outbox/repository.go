package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/pokedraftleague/draftd/go/internal/sqlutil"
)

// NotifyChannel is the Postgres NOTIFY channel the listener watches.
const NotifyChannel = "draft_outbox_events"

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

// Insert writes an event row and notifies the listener. Callers run this
// inside the transaction that performs the state change, so the
// notification only becomes visible once the commit is durable.
func (r *Repository) Insert(ctx context.Context, seasonID uuid.UUID, eventType string, payload []byte) error {
	id := uuid.New()
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO draft_outbox (id, season_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		id, seasonID, eventType, payload,
	); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, id.String()); err != nil {
		return fmt.Errorf("failed to notify outbox channel: %w", err)
	}
	return nil
}

func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_id, event_type, payload, created_at, sent_at
		FROM draft_outbox WHERE id = $1`,
		id,
	)
	return scanEvent(row)
}

// FetchUnsent returns the oldest undelivered events, capped at limit.
func (r *Repository) FetchUnsent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, season_id, event_type, payload, created_at, sent_at
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE draft_outbox SET sent_at = now() WHERE id = $1 AND sent_at IS NULL`,
		id,
	); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var ev Event
	var payload pqtype.NullRawMessage
	var sentAt sql.NullTime
	if err := row.Scan(&ev.ID, &ev.SeasonID, &ev.EventType, &payload, &ev.CreatedAt, &sentAt); err != nil {
		return nil, err
	}
	if payload.Valid {
		ev.Payload = payload.RawMessage
	}
	ev.SentAt = sqlutil.FromSqlTime(sentAt)
	return &ev, nil
}
