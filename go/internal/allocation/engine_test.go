package allocation

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pokedraftleague/draftd/go/internal/events"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

type fixture struct {
	seasonID uuid.UUID
	teams    []uuid.UUID
	store    *memStore
	leagues  *fakeLeagues
	engine   *Engine
}

type fixtureConfig struct {
	teams           int
	rounds          int
	draftType       models.DraftType
	turnEnforcement bool
	budget          int
	status          models.SessionStatus
}

func newFixture(cfg fixtureConfig) *fixture {
	if cfg.draftType == "" {
		cfg.draftType = models.DraftTypeSnake
	}
	if cfg.status == "" {
		cfg.status = models.SessionStatusInProgress
	}
	if cfg.budget == 0 {
		cfg.budget = 120
	}

	seasonID := uuid.New()
	f := &fixture{
		seasonID: seasonID,
		store:    newMemStore(),
		leagues: &fakeLeagues{
			seasons: map[uuid.UUID]*models.Season{
				seasonID: {ID: seasonID, Name: "Indigo League S9", Active: true},
			},
			teams: make(map[uuid.UUID]*models.Team),
		},
	}

	var order []uuid.UUID
	for i := 0; i < cfg.teams; i++ {
		teamID := uuid.New()
		f.teams = append(f.teams, teamID)
		order = append(order, teamID)
		f.leagues.teams[teamID] = &models.Team{ID: teamID, SeasonID: seasonID, Active: true}
		f.store.state.budgets[teamID] = &models.Budget{
			ID: uuid.New(), TeamID: teamID, SeasonID: seasonID,
			TotalPoints: cfg.budget,
		}
	}

	f.store.state.session = &models.DraftSession{
		ID:       uuid.New(),
		SeasonID: seasonID,
		Status:   cfg.status,
		Settings: models.SessionSettings{
			DraftType:       cfg.draftType,
			Rounds:          cfg.rounds,
			DraftOrder:      order,
			TimePerPickSec:  45,
			TurnEnforcement: cfg.turnEnforcement,
		},
	}

	f.engine = NewEngine(f.store, f.leagues, clockwork.NewFakeClock())
	return f
}

func (f *fixture) addEntry(name string, cost int) uuid.UUID {
	id := uuid.New()
	f.store.state.entries[id] = &models.PoolEntry{
		ID: id, SeasonID: f.seasonID, Name: name,
		PointCost: cost, Status: models.PoolEntryStatusAvailable,
	}
	return id
}

func (f *fixture) setEntryStatus(id uuid.UUID, status models.PoolEntryStatus) {
	f.store.state.entries[id].Status = status
}

func (f *fixture) submit(team uuid.UUID, entryName string) (*PickReceipt, error) {
	return f.engine.SubmitPick(context.Background(), SubmitPickRequest{
		TeamID:    team,
		SeasonID:  f.seasonID,
		EntryName: entryName,
	})
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	pe, ok := AsPickError(err)
	if !ok {
		t.Fatalf("want *PickError %s, got %v", kind, err)
	}
	if pe.Kind != kind {
		t.Fatalf("want kind %s, got %s (%s)", kind, pe.Kind, pe.Message)
	}
}

func TestSubmitPickCommits(t *testing.T) {
	f := newFixture(fixtureConfig{teams: 2, rounds: 3, turnEnforcement: true})
	id := f.addEntry("Garchomp", 18)

	receipt, err := f.submit(f.teams[0], "garchomp") // lookup is case-insensitive
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if receipt.Pick.EntryName != "Garchomp" || receipt.Pick.PointCost != 18 {
		t.Errorf("pick snapshot: got %s/%d", receipt.Pick.EntryName, receipt.Pick.PointCost)
	}
	if receipt.Pick.PickNumber != 1 || receipt.Pick.Round != 1 {
		t.Errorf("sequence: got pick %d round %d, want 1/1", receipt.Pick.PickNumber, receipt.Pick.Round)
	}
	if got := receipt.Budget.Remaining(); got != 102 {
		t.Errorf("remaining budget: got %d, want 102", got)
	}

	entry := f.store.state.entries[id]
	if entry.Status != models.PoolEntryStatusDrafted || entry.TeamID == nil || *entry.TeamID != f.teams[0] {
		t.Errorf("entry not drafted by team: %+v", entry)
	}
	if f.store.state.session.PicksMade != 1 {
		t.Errorf("picks_made: got %d, want 1", f.store.state.session.PicksMade)
	}
	if len(f.store.state.events) != 1 || f.store.state.events[0].EventType != events.TypePickCommitted {
		t.Errorf("want one staged PickCommitted event, got %+v", f.store.state.events)
	}
}

func TestSubmitPickRejections(t *testing.T) {
	cases := []struct {
		name string
		run  func(t *testing.T) error
		want Kind
	}{
		{
			name: "unknown season",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1})
				f.addEntry("Pikachu", 5)
				_, err := f.engine.SubmitPick(context.Background(), SubmitPickRequest{
					TeamID: f.teams[0], SeasonID: uuid.New(), EntryName: "Pikachu",
				})
				return err
			},
			want: KindNotFound,
		},
		{
			name: "unknown team",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1})
				f.addEntry("Pikachu", 5)
				_, err := f.submit(uuid.New(), "Pikachu")
				return err
			},
			want: KindNotFound,
		},
		{
			name: "inactive team",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1})
				f.addEntry("Pikachu", 5)
				f.leagues.teams[f.teams[0]].Active = false
				_, err := f.submit(f.teams[0], "Pikachu")
				return err
			},
			want: KindNotFound,
		},
		{
			name: "entry not in pool",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1})
				_, err := f.submit(f.teams[0], "Missingno")
				return err
			},
			want: KindUnknownEntity,
		},
		{
			name: "empty entry name",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1})
				_, err := f.submit(f.teams[0], "")
				return err
			},
			want: KindUnknownEntity,
		},
		{
			name: "entry already drafted",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 2})
				id := f.addEntry("Dragapult", 19)
				f.setEntryStatus(id, models.PoolEntryStatusDrafted)
				_, err := f.submit(f.teams[0], "Dragapult")
				return err
			},
			want: KindAlreadyTaken,
		},
		{
			name: "entry banned",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 2})
				id := f.addEntry("Koraidon", 20)
				f.setEntryStatus(id, models.PoolEntryStatusBanned)
				_, err := f.submit(f.teams[0], "Koraidon")
				return err
			},
			want: KindAlreadyTaken,
		},
		{
			name: "no budget row",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1})
				f.addEntry("Pikachu", 5)
				delete(f.store.state.budgets, f.teams[0])
				_, err := f.submit(f.teams[0], "Pikachu")
				return err
			},
			want: KindNoBudget,
		},
		{
			name: "insufficient budget",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1, budget: 10})
				f.addEntry("Garchomp", 18)
				_, err := f.submit(f.teams[0], "Garchomp")
				return err
			},
			want: KindInsufficientBudget,
		},
		{
			name: "out of turn",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 3, rounds: 2, turnEnforcement: true})
				f.addEntry("Pikachu", 5)
				_, err := f.submit(f.teams[1], "Pikachu") // teams[0] is on the clock
				return err
			},
			want: KindNotYourTurn,
		},
		{
			name: "session not started",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1, status: models.SessionStatusNotStarted})
				f.addEntry("Pikachu", 5)
				_, err := f.submit(f.teams[0], "Pikachu")
				return err
			},
			want: KindSessionClosed,
		},
		{
			name: "session paused",
			run: func(t *testing.T) error {
				f := newFixture(fixtureConfig{teams: 2, rounds: 1, status: models.SessionStatusPaused})
				f.addEntry("Pikachu", 5)
				_, err := f.submit(f.teams[0], "Pikachu")
				return err
			},
			want: KindSessionClosed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run(t)
			wantKind(t, err, tc.want)
		})
	}
}

func TestRejectionLeavesNoPartialState(t *testing.T) {
	// The claim succeeds inside the attempt, then the budget check fails;
	// the whole transaction must vanish.
	f := newFixture(fixtureConfig{teams: 2, rounds: 1, budget: 10})
	id := f.addEntry("Garchomp", 18)

	_, err := f.submit(f.teams[0], "Garchomp")
	wantKind(t, err, KindInsufficientBudget)

	if pe, _ := AsPickError(err); pe.Required != 18 || pe.Available != 10 {
		t.Errorf("budget detail: got required=%d available=%d", pe.Required, pe.Available)
	}
	if got := f.store.state.entries[id].Status; got != models.PoolEntryStatusAvailable {
		t.Errorf("entry status after rollback: got %s, want available", got)
	}
	if b := f.store.state.budgets[f.teams[0]]; b.SpentPoints != 0 {
		t.Errorf("budget after rollback: spent %d, want 0", b.SpentPoints)
	}
	if f.store.state.session.PicksMade != 0 {
		t.Errorf("picks_made after rollback: got %d, want 0", f.store.state.session.PicksMade)
	}
	if len(f.store.state.events) != 0 {
		t.Errorf("no events should be staged, got %d", len(f.store.state.events))
	}
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	const teams = 8
	f := newFixture(fixtureConfig{teams: teams, rounds: 1})
	f.addEntry("Garchomp", 18)

	var wg sync.WaitGroup
	errs := make([]error, teams)
	for i := 0; i < teams; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.submit(f.teams[i], "Garchomp")
		}(i)
	}
	wg.Wait()

	var wins, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			wantKind(t, err, KindAlreadyTaken)
			taken++
		}
	}
	if wins != 1 || taken != teams-1 {
		t.Fatalf("got %d winners and %d AlreadyTaken, want 1 and %d", wins, taken, teams-1)
	}
	if f.store.state.session.PicksMade != 1 {
		t.Errorf("picks_made: got %d, want 1", f.store.state.session.PicksMade)
	}

	// The winning claim and the drafted-by team must agree.
	winner := f.store.state.picks[0].TeamID
	e := f.store.state.entries[f.store.state.picks[0].EntryID]
	if e.TeamID == nil || *e.TeamID != winner {
		t.Errorf("entry owner %v does not match winning pick team %s", e.TeamID, winner)
	}
}

func TestConcurrentPicksNeverOverdraw(t *testing.T) {
	f := newFixture(fixtureConfig{teams: 1, rounds: 2, budget: 10})
	f.addEntry("Rotom-Wash", 6)
	f.addEntry("Azumarill", 6)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, name := range []string{"Rotom-Wash", "Azumarill"} {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = f.submit(f.teams[0], name)
		}(i, name)
	}
	wg.Wait()

	var committed, rejected int
	for _, err := range errs {
		if err == nil {
			committed++
			continue
		}
		wantKind(t, err, KindInsufficientBudget)
		rejected++
	}
	if committed != 1 || rejected != 1 {
		t.Fatalf("got %d commits and %d rejections, want 1 and 1", committed, rejected)
	}
	if b := f.store.state.budgets[f.teams[0]]; b.Remaining() < 0 || b.SpentPoints != 6 {
		t.Errorf("budget: spent %d remaining %d", b.SpentPoints, b.Remaining())
	}
}

func TestSequenceNumbersAreGapFree(t *testing.T) {
	const teams = 6
	f := newFixture(fixtureConfig{teams: teams, rounds: 1})
	names := []string{"Garchomp", "Dragapult", "Gholdengo", "Kingambit", "Rillaboom", "Zapdos"}
	for _, n := range names {
		f.addEntry(n, 10)
	}

	var wg sync.WaitGroup
	for i := 0; i < teams; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.submit(f.teams[i], names[i]); err != nil {
				t.Errorf("pick %s: %v", names[i], err)
			}
		}(i)
	}
	wg.Wait()

	var seqs []int
	for _, p := range f.store.state.picks {
		seqs = append(seqs, p.PickNumber)
	}
	sort.Ints(seqs)
	for i, seq := range seqs {
		if seq != i+1 {
			t.Fatalf("sequence has a gap or duplicate: %v", seqs)
		}
	}
}

func TestTransientConflictsRetry(t *testing.T) {
	f := newFixture(fixtureConfig{teams: 2, rounds: 1})
	f.addEntry("Pikachu", 5)

	cs := &conflictStore{inner: f.store, failures: 2}
	engine := NewEngine(cs, f.leagues, clockwork.NewFakeClock())

	_, err := engine.SubmitPick(context.Background(), SubmitPickRequest{
		TeamID: f.teams[0], SeasonID: f.seasonID, EntryName: "Pikachu",
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if cs.calls != 3 {
		t.Errorf("attempts: got %d, want 3", cs.calls)
	}
}

func TestTransientConflictsExhaust(t *testing.T) {
	f := newFixture(fixtureConfig{teams: 2, rounds: 1})
	f.addEntry("Pikachu", 5)

	cs := &conflictStore{inner: f.store, failures: 99}
	engine := NewEngine(cs, f.leagues, clockwork.NewFakeClock())

	_, err := engine.SubmitPick(context.Background(), SubmitPickRequest{
		TeamID: f.teams[0], SeasonID: f.seasonID, EntryName: "Pikachu",
	})
	wantKind(t, err, KindTransientConflict)
	if cs.calls != maxAttempts {
		t.Errorf("attempts: got %d, want %d", cs.calls, maxAttempts)
	}
	if pe, _ := AsPickError(err); pe.Final() {
		t.Errorf("TransientConflict must be retriable by the caller")
	}
}

func TestFinalPickCompletesSession(t *testing.T) {
	f := newFixture(fixtureConfig{teams: 2, rounds: 1, turnEnforcement: true})
	f.addEntry("Garchomp", 18)
	f.addEntry("Dragapult", 19)

	if _, err := f.submit(f.teams[0], "Garchomp"); err != nil {
		t.Fatalf("pick 1: %v", err)
	}
	if _, err := f.submit(f.teams[1], "Dragapult"); err != nil {
		t.Fatalf("pick 2: %v", err)
	}

	if got := f.store.state.session.Status; got != models.SessionStatusComplete {
		t.Errorf("session status: got %s, want COMPLETE", got)
	}
	var sawCompleted bool
	for _, ev := range f.store.state.events {
		if ev.EventType == events.TypeDraftCompleted {
			sawCompleted = true
		}
	}
	if !sawCompleted {
		t.Error("expected a DraftCompleted event to be staged")
	}

	f.addEntry("Pikachu", 5)
	_, err := f.submit(f.teams[0], "Pikachu")
	wantKind(t, err, KindSessionClosed)
}

func TestSnakeOrderReversesEvenRounds(t *testing.T) {
	f := newFixture(fixtureConfig{teams: 2, rounds: 2, turnEnforcement: true})
	names := []string{"Garchomp", "Dragapult", "Gholdengo", "Kingambit"}
	for _, n := range names {
		f.addEntry(n, 10)
	}

	// Snake over two teams: A, B, then B, A.
	order := []uuid.UUID{f.teams[0], f.teams[1], f.teams[1], f.teams[0]}

	// Round 2 opens with the same team that closed round 1; the other
	// team jumping in is out of turn.
	if _, err := f.submit(f.teams[0], names[0]); err != nil {
		t.Fatalf("pick 1: %v", err)
	}
	if _, err := f.submit(f.teams[1], names[1]); err != nil {
		t.Fatalf("pick 2: %v", err)
	}
	_, err := f.submit(f.teams[0], names[2])
	wantKind(t, err, KindNotYourTurn)

	for i := 2; i < 4; i++ {
		if _, err := f.submit(order[i], names[i]); err != nil {
			t.Fatalf("pick %d: %v", i+1, err)
		}
	}
	if got := f.store.state.session.Status; got != models.SessionStatusComplete {
		t.Errorf("session status: got %s, want COMPLETE", got)
	}
}

func TestHintsAreAuditOnly(t *testing.T) {
	f := newFixture(fixtureConfig{teams: 2, rounds: 2})
	f.addEntry("Garchomp", 18)

	round, pick := 7, 99
	receipt, err := f.engine.SubmitPick(context.Background(), SubmitPickRequest{
		TeamID:    f.teams[0],
		SeasonID:  f.seasonID,
		EntryName: "Garchomp",
		RoundHint: &round,
		PickHint:  &pick,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if receipt.Pick.Round != 1 || receipt.Pick.PickNumber != 1 {
		t.Errorf("hints leaked into sequence: round %d pick %d", receipt.Pick.Round, receipt.Pick.PickNumber)
	}
	if receipt.Pick.Notes == nil {
		t.Fatal("expected hint to be preserved in notes")
	}
}
