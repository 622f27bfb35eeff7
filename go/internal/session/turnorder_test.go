package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

func teamIDs(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestComputeCurrentTurnSnake(t *testing.T) {
	order := teamIDs(4)
	settings := models.SessionSettings{
		DraftType:  models.DraftTypeSnake,
		Rounds:     3,
		DraftOrder: order,
	}

	// 4 teams over 3 snake rounds: 0123 3210 0123.
	wantIdx := []int{0, 1, 2, 3, 3, 2, 1, 0, 0, 1, 2, 3}
	for picksMade, idx := range wantIdx {
		turn, ok := ComputeCurrentTurn(settings, picksMade)
		if !ok {
			t.Fatalf("picksMade=%d: expected a turn", picksMade)
		}
		if turn.TeamID != order[idx] {
			t.Errorf("picksMade=%d: got team index %v, want %d", picksMade, turn.TeamID, idx)
		}
		if turn.PickNumber != picksMade+1 {
			t.Errorf("picksMade=%d: pick number %d, want %d", picksMade, turn.PickNumber, picksMade+1)
		}
		if wantRound := picksMade/4 + 1; turn.Round != wantRound {
			t.Errorf("picksMade=%d: round %d, want %d", picksMade, turn.Round, wantRound)
		}
	}

	if _, ok := ComputeCurrentTurn(settings, 12); ok {
		t.Error("expected no turn once all picks are made")
	}
}

func TestComputeCurrentTurnLinear(t *testing.T) {
	order := teamIDs(3)
	settings := models.SessionSettings{
		DraftType:  models.DraftTypeLinear,
		Rounds:     2,
		DraftOrder: order,
	}

	wantIdx := []int{0, 1, 2, 0, 1, 2}
	for picksMade, idx := range wantIdx {
		turn, ok := ComputeCurrentTurn(settings, picksMade)
		if !ok {
			t.Fatalf("picksMade=%d: expected a turn", picksMade)
		}
		if turn.TeamID != order[idx] {
			t.Errorf("picksMade=%d: wrong team, want index %d", picksMade, idx)
		}
	}
}

func TestComputeCurrentTurnIsDeterministic(t *testing.T) {
	settings := models.SessionSettings{
		DraftType:  models.DraftTypeSnake,
		Rounds:     11,
		DraftOrder: teamIDs(8),
	}
	for picksMade := 0; picksMade < settings.TotalPicks(); picksMade++ {
		a, okA := ComputeCurrentTurn(settings, picksMade)
		b, okB := ComputeCurrentTurn(settings, picksMade)
		if okA != okB || a != b {
			t.Fatalf("picksMade=%d: derivation not deterministic", picksMade)
		}
	}
}

func TestComputeCurrentTurnEdgeCases(t *testing.T) {
	cases := []struct {
		name      string
		settings  models.SessionSettings
		picksMade int
	}{
		{"empty order", models.SessionSettings{DraftType: models.DraftTypeSnake, Rounds: 2}, 0},
		{"negative picks", models.SessionSettings{DraftType: models.DraftTypeSnake, Rounds: 2, DraftOrder: teamIDs(2)}, -1},
		{"past the end", models.SessionSettings{DraftType: models.DraftTypeSnake, Rounds: 2, DraftOrder: teamIDs(2)}, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ComputeCurrentTurn(tc.settings, tc.picksMade); ok {
				t.Error("expected ok=false")
			}
		})
	}
}

func TestRoundOf(t *testing.T) {
	settings := models.SessionSettings{Rounds: 3, DraftOrder: teamIDs(4)}
	cases := []struct {
		pickNumber, want int
	}{
		{1, 1}, {4, 1}, {5, 2}, {8, 2}, {9, 3}, {12, 3},
	}
	for _, tc := range cases {
		if got := RoundOf(settings, tc.pickNumber); got != tc.want {
			t.Errorf("RoundOf(%d): got %d, want %d", tc.pickNumber, got, tc.want)
		}
	}
	if got := RoundOf(settings, 0); got != 0 {
		t.Errorf("RoundOf(0): got %d, want 0", got)
	}
}

func TestIsComplete(t *testing.T) {
	settings := models.SessionSettings{Rounds: 2, DraftOrder: teamIDs(3)}
	if IsComplete(settings, 5) {
		t.Error("5 of 6 picks should not be complete")
	}
	if !IsComplete(settings, 6) {
		t.Error("6 of 6 picks should be complete")
	}
	if IsComplete(models.SessionSettings{}, 0) {
		t.Error("zero-size draft is never complete")
	}
}
