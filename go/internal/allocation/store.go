package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pokedraftleague/draftd/go/internal/budget"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/outbox"
	"github.com/pokedraftleague/draftd/go/internal/pool"
	"github.com/pokedraftleague/draftd/go/internal/session"
	"github.com/pokedraftleague/draftd/go/internal/sqlutil"
)

// PostgresStore runs pick transactions against Postgres, delegating each
// operation to the owning package's repository rebound to the transaction.
type PostgresStore struct {
	db       *sql.DB
	pool     *pool.Repository
	budgets  *budget.Repository
	sessions *session.Repository
	outbox   *outbox.Repository
}

func NewPostgresStore(db *sql.DB, poolRepo *pool.Repository, budgetRepo *budget.Repository,
	sessionRepo *session.Repository, outboxRepo *outbox.Repository) *PostgresStore {
	return &PostgresStore{
		db:       db,
		pool:     poolRepo,
		budgets:  budgetRepo,
		sessions: sessionRepo,
		outbox:   outboxRepo,
	}
}

func (s *PostgresStore) RunAtomic(ctx context.Context, fn func(tx Tx) error) error {
	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&pgTx{
			tx:       tx,
			pool:     s.pool.WithTx(tx),
			budgets:  s.budgets.WithTx(tx),
			sessions: s.sessions.WithTx(tx),
			outbox:   s.outbox.WithTx(tx),
		})
	})
	if err != nil && isRetriableTxFailure(err) {
		return fmt.Errorf("%w: %v", ErrTxConflict, err)
	}
	return err
}

// isRetriableTxFailure reports whether err is a serialization failure or
// deadlock, the two Postgres outcomes where retrying the identical
// transaction is correct.
func isRetriableTxFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

type pgTx struct {
	tx       *sql.Tx
	pool     *pool.Repository
	budgets  *budget.Repository
	sessions *session.Repository
	outbox   *outbox.Repository
}

func (t *pgTx) SessionBySeason(ctx context.Context, seasonID uuid.UUID) (*models.DraftSession, error) {
	return t.sessions.GetSessionBySeason(ctx, seasonID)
}

func (t *pgTx) EntryByName(ctx context.Context, seasonID uuid.UUID, name string) (*models.PoolEntry, error) {
	return t.pool.GetEntryByName(ctx, seasonID, name)
}

func (t *pgTx) ClaimEntry(ctx context.Context, entryID, teamID uuid.UUID, at time.Time) (bool, error) {
	return t.pool.ClaimEntry(ctx, entryID, teamID, at)
}

func (t *pgTx) Budget(ctx context.Context, teamID, seasonID uuid.UUID) (*models.Budget, error) {
	return t.budgets.GetBudget(ctx, teamID, seasonID)
}

func (t *pgTx) DebitBudget(ctx context.Context, teamID, seasonID uuid.UUID, amount int) (*models.Budget, bool, error) {
	return t.budgets.Debit(ctx, teamID, seasonID, amount)
}

func (t *pgTx) AdvancePick(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return t.sessions.AdvancePick(ctx, sessionID)
}

func (t *pgTx) CompleteSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := t.sessions.UpdateStatus(ctx, sessionID, models.SessionStatusComplete)
	return err
}

func (t *pgTx) InsertPickRecord(ctx context.Context, rec models.PickRecord) (*models.PickRecord, error) {
	row := t.tx.QueryRowContext(ctx, `
		INSERT INTO draft_picks (id, season_id, team_id, entry_id, entry_name, point_cost, round, pick_number, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, season_id, team_id, entry_id, entry_name, point_cost, round, pick_number, notes, created_at`,
		rec.ID, rec.SeasonID, rec.TeamID, rec.EntryID, rec.EntryName,
		rec.PointCost, rec.Round, rec.PickNumber, sqlutil.ToSqlString(rec.Notes), rec.CreatedAt,
	)

	var out models.PickRecord
	var notes sql.NullString
	err := row.Scan(&out.ID, &out.SeasonID, &out.TeamID, &out.EntryID, &out.EntryName,
		&out.PointCost, &out.Round, &out.PickNumber, &notes, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pick record: %w", err)
	}
	out.Notes = sqlutil.FromSqlStringPtr(notes)
	return &out, nil
}

func (t *pgTx) InsertEvent(ctx context.Context, seasonID uuid.UUID, eventType string, payload []byte) error {
	return t.outbox.Insert(ctx, seasonID, eventType, payload)
}
