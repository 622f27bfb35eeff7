package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/sqlutil"
)

// ErrBudgetNotFound is returned when no budget row exists for a
// team+season pair.
var ErrBudgetNotFound = errors.New("budget not found")

const budgetColumns = `id, team_id, season_id, total_points, spent_points, created_at, updated_at`

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

func (r *Repository) CreateBudget(ctx context.Context, req CreateBudgetRequest) (*models.Budget, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO draft_budgets (id, team_id, season_id, total_points, spent_points)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING `+budgetColumns,
		req.ID, req.TeamID, req.SeasonID, req.TotalPoints,
	)
	b, err := scanBudget(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}
	return b, nil
}

func (r *Repository) GetBudget(ctx context.Context, teamID, seasonID uuid.UUID) (*models.Budget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+`
		FROM draft_budgets
		WHERE team_id = $1 AND season_id = $2`,
		teamID, seasonID,
	)
	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return b, nil
}

// Debit charges amount against the team's budget. The predicate keeps
// spent within total at the database, so a stale pre-check can never
// drive remaining negative: zero rows means the charge does not fit.
func (r *Repository) Debit(ctx context.Context, teamID, seasonID uuid.UUID, amount int) (*models.Budget, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE draft_budgets
		SET spent_points = spent_points + $1, updated_at = now()
		WHERE team_id = $2 AND season_id = $3
		  AND spent_points + $1 <= total_points
		RETURNING `+budgetColumns,
		amount, teamID, seasonID,
	)
	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to debit budget: %w", err)
	}
	return b, true, nil
}

func (r *Repository) ListBudgetsBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+`
		FROM draft_budgets
		WHERE season_id = $1
		ORDER BY team_id`,
		seasonID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets by season: %w", err)
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (*models.Budget, error) {
	var b models.Budget
	if err := row.Scan(&b.ID, &b.TeamID, &b.SeasonID, &b.TotalPoints, &b.SpentPoints, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
