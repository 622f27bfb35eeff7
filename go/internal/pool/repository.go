package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/sqlutil"
)

// ErrEntryNotFound is returned when no pool entry matches the lookup key.
var ErrEntryNotFound = errors.New("pool entry not found")

const entryColumns = `id, season_id, name, point_cost, status, team_id,
	generation, type1, type2, tera_banned, drafted_at, created_at, updated_at`

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

// GetEntryByName resolves an entry by its case-insensitive name key.
func (r *Repository) GetEntryByName(ctx context.Context, seasonID uuid.UUID, name string) (*models.PoolEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM draft_pool
		WHERE season_id = $1 AND lower(name) = lower($2)`,
		seasonID, strings.TrimSpace(name),
	)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get pool entry by name: %w", err)
	}
	return entry, nil
}

func (r *Repository) GetEntry(ctx context.Context, id uuid.UUID) (*models.PoolEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM draft_pool WHERE id = $1`,
		id,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get pool entry: %w", err)
	}
	return entry, nil
}

// ClaimEntry is the atomic available -> drafted transition. The status
// predicate makes it a compare-and-swap: of any number of concurrent
// claims for the same entry, exactly one updates a row.
func (r *Repository) ClaimEntry(ctx context.Context, entryID, teamID uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE draft_pool
		SET status = $1, team_id = $2, drafted_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5`,
		models.PoolEntryStatusDrafted, teamID, at, entryID, models.PoolEntryStatusAvailable,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim pool entry: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected count: %w", err)
	}
	return rows == 1, nil
}

// UpdateEntryStatus applies an administrative transition. Drafted entries
// are immutable through this path; releasing one is a future trade/undo
// concern, not an admin toggle.
func (r *Repository) UpdateEntryStatus(ctx context.Context, entryID uuid.UUID, status models.PoolEntryStatus) (*models.PoolEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE draft_pool
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status <> $3
		RETURNING `+entryColumns,
		status, entryID, models.PoolEntryStatusDrafted,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to update pool entry status: %w", err)
	}
	return entry, nil
}

// UpsertEntry inserts or refreshes one entry keyed on (season, lower(name)).
// Returns true when a new row was created. Drafted rows are left untouched.
func (r *Repository) UpsertEntry(ctx context.Context, seasonID uuid.UUID, e ImportEntry) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO draft_pool (id, season_id, name, point_cost, status, generation, type1, type2, tera_banned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (season_id, lower(name)) DO UPDATE
		SET point_cost = EXCLUDED.point_cost,
		    status     = EXCLUDED.status,
		    generation = EXCLUDED.generation,
		    type1      = EXCLUDED.type1,
		    type2      = EXCLUDED.type2,
		    tera_banned = EXCLUDED.tera_banned,
		    updated_at = now()
		WHERE draft_pool.status <> $10
		RETURNING (xmax = 0)`,
		uuid.New(), seasonID, strings.TrimSpace(e.Name), e.PointCost, e.Status,
		sqlutil.ToSqlInt32(e.Generation), sqlutil.ToSqlString(e.Type1), sqlutil.ToSqlString(e.Type2),
		e.TeraBanned, models.PoolEntryStatusDrafted,
	).Scan(&inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict row is drafted; import must not overwrite it.
			return false, ErrEntryNotFound
		}
		return false, fmt.Errorf("failed to upsert pool entry: %w", err)
	}
	return inserted, nil
}

// ListEntries returns entries for a season ordered by cost descending then
// name, optionally filtered.
func (r *Repository) ListEntries(ctx context.Context, seasonID uuid.UUID, filter ListFilter) ([]models.PoolEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM draft_pool
		WHERE season_id = $1`
	args := []any{seasonID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.MinPoints > 0 {
		args = append(args, filter.MinPoints)
		query += fmt.Sprintf(" AND point_cost >= $%d", len(args))
	}
	if filter.MaxPoints > 0 {
		args = append(args, filter.MaxPoints)
		query += fmt.Sprintf(" AND point_cost <= $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	query += " ORDER BY point_cost DESC, name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PoolEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// CheapestAvailable returns the lowest-cost available entry the team can
// afford, name order breaking ties. Used by the auto-draft path.
func (r *Repository) CheapestAvailable(ctx context.Context, seasonID uuid.UUID, maxCost int) (*models.PoolEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM draft_pool
		WHERE season_id = $1 AND status = $2 AND point_cost <= $3
		ORDER BY point_cost ASC, name ASC
		LIMIT 1`,
		seasonID, models.PoolEntryStatusAvailable, maxCost,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get cheapest available entry: %w", err)
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.PoolEntry, error) {
	var e models.PoolEntry
	var teamID uuid.NullUUID
	var generation sql.NullInt32
	var type1, type2 sql.NullString
	var draftedAt sql.NullTime

	err := row.Scan(
		&e.ID, &e.SeasonID, &e.Name, &e.PointCost, &e.Status, &teamID,
		&generation, &type1, &type2, &e.TeraBanned, &draftedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.TeamID = sqlutil.FromNullUUID(teamID)
	e.Generation = sqlutil.FromSqlInt32(generation)
	e.Type1 = sqlutil.FromSqlStringPtr(type1)
	e.Type2 = sqlutil.FromSqlStringPtr(type2)
	e.DraftedAt = sqlutil.FromSqlTime(draftedAt)
	return &e, nil
}
