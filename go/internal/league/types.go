package league

import (
	"github.com/google/uuid"
)

// CreateSeasonRequest represents a request to create a new season
type CreateSeasonRequest struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// CreateTeamRequest represents a request to register a team in a season
type CreateTeamRequest struct {
	ID        uuid.UUID `json:"id"`
	SeasonID  uuid.UUID `json:"season_id"`
	Name      string    `json:"name"`
	CoachName string    `json:"coach_name"`
}
