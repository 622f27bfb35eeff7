package models

import (
	"time"

	"github.com/google/uuid"
)

// Budget tracks a team's point allowance for one season.
// SpentPoints only moves through the allocation engine's commit step.
type Budget struct {
	ID          uuid.UUID `json:"id"`
	TeamID      uuid.UUID `json:"team_id"`
	SeasonID    uuid.UUID `json:"season_id"`
	TotalPoints int       `json:"total_points"`
	SpentPoints int       `json:"spent_points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Remaining returns the derived balance. Never negative after a commit.
func (b Budget) Remaining() int {
	return b.TotalPoints - b.SpentPoints
}
