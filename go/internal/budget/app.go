package budget

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

// BudgetRepository defines what the app layer needs from the budget repository
type BudgetRepository interface {
	CreateBudget(ctx context.Context, req CreateBudgetRequest) (*models.Budget, error)
	GetBudget(ctx context.Context, teamID, seasonID uuid.UUID) (*models.Budget, error)
	ListBudgetsBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.Budget, error)
}

// App exposes budget reads and setup. Debits happen exclusively inside
// the allocation engine's commit transaction, never through this app.
type App struct {
	repo BudgetRepository
}

func NewApp(repo BudgetRepository) *App {
	return &App{repo: repo}
}

func (a *App) CreateBudget(ctx context.Context, req CreateBudgetRequest) (*models.Budget, error) {
	if req.TotalPoints <= 0 {
		req.TotalPoints = DefaultTotalPoints
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	b, err := a.repo.CreateBudget(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}
	return b, nil
}

func (a *App) GetBudget(ctx context.Context, teamID, seasonID uuid.UUID) (*models.Budget, error) {
	return a.repo.GetBudget(ctx, teamID, seasonID)
}

func (a *App) ListBudgetsBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.Budget, error) {
	return a.repo.ListBudgetsBySeason(ctx, seasonID)
}
