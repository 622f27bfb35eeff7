package session

import (
	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

// Defaults recovered from league practice: 11 rounds on a 45 second
// clock, turn order enforced.
const (
	DefaultRounds         = 11
	DefaultTimePerPickSec = 45
)

// CreateSessionRequest represents a request to create a season's draft session
type CreateSessionRequest struct {
	ID       uuid.UUID              `json:"id"`
	SeasonID uuid.UUID              `json:"season_id"`
	Settings models.SessionSettings `json:"settings"`
}
