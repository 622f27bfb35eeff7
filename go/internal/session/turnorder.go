package session

import (
	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

// Turn identifies whose pick is on the clock.
type Turn struct {
	TeamID      uuid.UUID `json:"team_id"`
	Round       int       `json:"round"`
	SlotInRound int       `json:"slot_in_round"` // 1-based position within the round
	PickNumber  int       `json:"pick_number"`   // 1-based overall pick about to be made
}

// ComputeCurrentTurn derives whose turn it is from the configured order
// and the count of committed picks. It is a pure function: the same
// settings and pick count always yield the same turn, so every server
// instance agrees without shared in-memory state. ok is false once the
// draft has run out of picks.
func ComputeCurrentTurn(settings models.SessionSettings, picksMade int) (Turn, bool) {
	n := len(settings.DraftOrder)
	if n == 0 || picksMade < 0 || picksMade >= settings.TotalPicks() {
		return Turn{}, false
	}

	round := picksMade/n + 1
	idx := picksMade % n
	if settings.DraftType == models.DraftTypeSnake && round%2 == 0 {
		// Snake drafts reverse the order on even rounds.
		idx = n - 1 - idx
	}

	return Turn{
		TeamID:      settings.DraftOrder[idx],
		Round:       round,
		SlotInRound: picksMade%n + 1,
		PickNumber:  picksMade + 1,
	}, true
}

// RoundOf returns the round a given overall pick number falls in.
func RoundOf(settings models.SessionSettings, pickNumber int) int {
	n := len(settings.DraftOrder)
	if n == 0 || pickNumber < 1 {
		return 0
	}
	return (pickNumber-1)/n + 1
}

// IsComplete reports whether every pick of the session has been made.
func IsComplete(settings models.SessionSettings, picksMade int) bool {
	total := settings.TotalPicks()
	return total > 0 && picksMade >= total
}
