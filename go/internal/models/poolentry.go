package models

import (
	"time"

	"github.com/google/uuid"
)

// PoolEntryStatus defines the availability of a draft pool entry.
type PoolEntryStatus string

const (
	PoolEntryStatusAvailable   PoolEntryStatus = "available"
	PoolEntryStatusDrafted     PoolEntryStatus = "drafted"
	PoolEntryStatusBanned      PoolEntryStatus = "banned"
	PoolEntryStatusUnavailable PoolEntryStatus = "unavailable"
)

// IsTerminal reports whether the status excludes the entry from picks for
// the rest of the draft cycle.
func (s PoolEntryStatus) IsTerminal() bool {
	return s == PoolEntryStatusDrafted || s == PoolEntryStatusBanned || s == PoolEntryStatusUnavailable
}

// PoolEntry represents one draftable Pokemon in a season's pool.
// Entries are never deleted mid-season; status changes only.
type PoolEntry struct {
	ID         uuid.UUID       `json:"id"`
	SeasonID   uuid.UUID       `json:"season_id"`
	Name       string          `json:"name"` // case-insensitive unique per season
	PointCost  int             `json:"point_cost"`
	Status     PoolEntryStatus `json:"status"`
	TeamID     *uuid.UUID      `json:"team_id,omitempty"` // set only when drafted
	Generation *int            `json:"generation,omitempty"`
	Type1      *string         `json:"type1,omitempty"`
	Type2      *string         `json:"type2,omitempty"`
	TeraBanned bool            `json:"tera_banned"` // still draftable, display flag only
	DraftedAt  *time.Time      `json:"drafted_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
