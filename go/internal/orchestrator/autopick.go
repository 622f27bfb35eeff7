package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pokedraftleague/draftd/go/internal/budget"
	"github.com/pokedraftleague/draftd/go/internal/pool"
)

// Strategy selects the entry an expired clock drafts for a team. It only
// names an entry; the engine still decides whether the pick is legal.
type Strategy interface {
	SelectEntry(ctx context.Context, seasonID, teamID uuid.UUID) (string, error)
}

// CheapestAffordableStrategy picks the lowest-cost available entry the
// team can pay for, names breaking ties. Predictable and budget-safe:
// an auto-pick never strands a team with unfillable roster slots.
type CheapestAffordableStrategy struct {
	pools   *pool.Repository
	budgets *budget.Repository
}

func NewCheapestAffordableStrategy(pools *pool.Repository, budgets *budget.Repository) *CheapestAffordableStrategy {
	return &CheapestAffordableStrategy{pools: pools, budgets: budgets}
}

func (s *CheapestAffordableStrategy) SelectEntry(ctx context.Context, seasonID, teamID uuid.UUID) (string, error) {
	b, err := s.budgets.GetBudget(ctx, teamID, seasonID)
	if err != nil {
		return "", fmt.Errorf("failed to get budget for auto-pick: %w", err)
	}

	entry, err := s.pools.CheapestAvailable(ctx, seasonID, b.Remaining())
	if err != nil {
		if errors.Is(err, pool.ErrEntryNotFound) {
			return "", fmt.Errorf("no available entry within %d points", b.Remaining())
		}
		return "", fmt.Errorf("failed to find affordable entry: %w", err)
	}
	return entry.Name, nil
}
