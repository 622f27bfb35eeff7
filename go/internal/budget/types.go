package budget

import (
	"github.com/google/uuid"
)

// DefaultTotalPoints is the standard season allowance when a team joins
// without an explicit budget.
const DefaultTotalPoints = 120

// CreateBudgetRequest represents a request to create a team's season budget
type CreateBudgetRequest struct {
	ID          uuid.UUID `json:"id"`
	TeamID      uuid.UUID `json:"team_id"`
	SeasonID    uuid.UUID `json:"season_id"`
	TotalPoints int       `json:"total_points"`
}
