package pool

import (
	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

// ImportEntry is one row of a bulk pool import.
type ImportEntry struct {
	Name       string                 `json:"name"`
	PointCost  int                    `json:"point_cost"`
	Status     models.PoolEntryStatus `json:"status"`
	Generation *int                   `json:"generation,omitempty"`
	Type1      *string                `json:"type1,omitempty"`
	Type2      *string                `json:"type2,omitempty"`
	TeraBanned bool                   `json:"tera_banned"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"` // drafted entries are never overwritten
	Errors   []string `json:"errors,omitempty"`
}

// ListFilter narrows ListEntries results. Zero values mean "no filter".
type ListFilter struct {
	Status    models.PoolEntryStatus
	MinPoints int
	MaxPoints int
	Search    string
}

// StatusChange describes an administrative status transition.
type StatusChange struct {
	EntryID   uuid.UUID              `json:"entry_id"`
	NewStatus models.PoolEntryStatus `json:"new_status"`
}
