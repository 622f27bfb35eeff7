package models

import (
	"time"

	"github.com/google/uuid"
)

// PickRecord is the immutable audit entry for one committed draft pick.
// PointCost snapshots the pool entry's cost at commit time; later cost
// changes never alter history. PickNumber values form a contiguous,
// strictly increasing sequence per season.
type PickRecord struct {
	ID         uuid.UUID `json:"id"`
	SeasonID   uuid.UUID `json:"season_id"`
	TeamID     uuid.UUID `json:"team_id"`
	EntryID    uuid.UUID `json:"entry_id"`
	EntryName  string    `json:"entry_name"`
	PointCost  int       `json:"point_cost"`
	Round      int       `json:"round"`
	PickNumber int       `json:"pick_number"` // overall, season-scoped
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
