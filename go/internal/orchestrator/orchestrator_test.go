package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pokedraftleague/draftd/go/internal/allocation"
	"github.com/pokedraftleague/draftd/go/internal/events"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

type fakeSessions struct {
	mu   sync.Mutex
	sess *models.DraftSession
}

func (f *fakeSessions) GetSessionBySeason(_ context.Context, seasonID uuid.UUID) (*models.DraftSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := *f.sess
	return &sess, nil
}

func (f *fakeSessions) setStatus(status models.SessionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess.Status = status
}

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []allocation.SubmitPickRequest
	errs     []error // consumed per call; nil entries mean success
}

func (f *fakeSubmitter) SubmitPick(_ context.Context, req allocation.SubmitPickRequest) (*allocation.PickReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	if err != nil {
		return nil, err
	}
	return &allocation.PickReceipt{
		Pick:   &models.PickRecord{EntryName: req.EntryName, PickNumber: len(f.requests)},
		Budget: &models.Budget{TotalPoints: 120},
	}, nil
}

type fakeStrategy struct {
	mu    sync.Mutex
	names []string
	calls int
}

func (f *fakeStrategy) SelectEntry(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := f.names[f.calls%len(f.names)]
	f.calls++
	return name, nil
}

func newTestOrchestrator(autoDraft bool) (*Orchestrator, *fakeSessions, *fakeSubmitter, *fakeStrategy, *clockwork.FakeClock, uuid.UUID) {
	seasonID := uuid.New()
	teamA, teamB := uuid.New(), uuid.New()
	sessions := &fakeSessions{sess: &models.DraftSession{
		ID:       uuid.New(),
		SeasonID: seasonID,
		Status:   models.SessionStatusInProgress,
		Settings: models.SessionSettings{
			DraftType:      models.DraftTypeSnake,
			Rounds:         2,
			DraftOrder:     []uuid.UUID{teamA, teamB},
			TimePerPickSec: 45,
			AutoDraft:      autoDraft,
		},
	}}
	engine := &fakeSubmitter{}
	strat := &fakeStrategy{names: []string{"Magikarp", "Caterpie"}}
	clock := clockwork.NewFakeClock()
	o := NewOrchestrator(engine, sessions, strat, clock)
	return o, sessions, engine, strat, clock, seasonID
}

func expectWork(t *testing.T, workCh chan uuid.UUID, want uuid.UUID) {
	t.Helper()
	select {
	case got := <-workCh:
		if got != want {
			t.Fatalf("work channel: got %s, want %s", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func expectNoWork(t *testing.T, workCh chan uuid.UUID) {
	t.Helper()
	select {
	case got := <-workCh:
		t.Fatalf("unexpected work item %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPickClockFiresAtDeadline(t *testing.T) {
	o, _, _, _, clock, seasonID := newTestOrchestrator(true)

	if err := o.scheduleNextPick(context.Background(), seasonID, clock.Now()); err != nil {
		t.Fatal(err)
	}

	clock.Advance(44 * time.Second)
	expectNoWork(t, o.workCh)

	clock.Advance(2 * time.Second)
	expectWork(t, o.workCh, seasonID)
}

func TestDuplicateBaseTimeSchedulesOnce(t *testing.T) {
	o, _, _, _, clock, seasonID := newTestOrchestrator(true)
	base := clock.Now()

	if err := o.scheduleNextPick(context.Background(), seasonID, base); err != nil {
		t.Fatal(err)
	}
	// Redelivered event with the identical base time.
	if err := o.scheduleNextPick(context.Background(), seasonID, base); err != nil {
		t.Fatal(err)
	}

	clock.Advance(46 * time.Second)
	expectWork(t, o.workCh, seasonID)
	expectNoWork(t, o.workCh)
}

func TestCancelTimerStopsClock(t *testing.T) {
	o, _, _, _, clock, seasonID := newTestOrchestrator(true)

	if err := o.scheduleNextPick(context.Background(), seasonID, clock.Now()); err != nil {
		t.Fatal(err)
	}
	o.cancelTimer(seasonID)

	clock.Advance(time.Minute)
	expectNoWork(t, o.workCh)
}

func TestRescheduleReplacesTimer(t *testing.T) {
	o, _, _, _, clock, seasonID := newTestOrchestrator(true)

	if err := o.scheduleNextPick(context.Background(), seasonID, clock.Now()); err != nil {
		t.Fatal(err)
	}
	clock.Advance(30 * time.Second)
	// A pick landed; its event re-arms the clock from now.
	if err := o.scheduleNextPick(context.Background(), seasonID, clock.Now()); err != nil {
		t.Fatal(err)
	}

	// The original deadline passes without firing.
	clock.Advance(20 * time.Second)
	expectNoWork(t, o.workCh)

	clock.Advance(30 * time.Second)
	expectWork(t, o.workCh, seasonID)
}

func TestDeadlineSubmitsAutoPick(t *testing.T) {
	o, _, engine, _, _, seasonID := newTestOrchestrator(true)

	if err := o.handleDeadline(context.Background(), seasonID); err != nil {
		t.Fatal(err)
	}

	if len(engine.requests) != 1 {
		t.Fatalf("engine calls: got %d, want 1", len(engine.requests))
	}
	req := engine.requests[0]
	if req.EntryName != "Magikarp" || req.SeasonID != seasonID {
		t.Errorf("unexpected auto-pick request: %+v", req)
	}
	if req.Notes == nil {
		t.Error("auto-picks must be marked in the notes")
	}
}

func TestDeadlineIgnoredWhenAutoDraftOff(t *testing.T) {
	o, _, engine, _, _, seasonID := newTestOrchestrator(false)

	if err := o.handleDeadline(context.Background(), seasonID); err != nil {
		t.Fatal(err)
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine calls: got %d, want 0", len(engine.requests))
	}
}

func TestDeadlineIgnoredWhenPaused(t *testing.T) {
	o, sessions, engine, _, _, seasonID := newTestOrchestrator(true)
	sessions.setStatus(models.SessionStatusPaused)

	if err := o.handleDeadline(context.Background(), seasonID); err != nil {
		t.Fatal(err)
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine calls: got %d, want 0", len(engine.requests))
	}
}

func TestAutoPickReselectsAfterLostRace(t *testing.T) {
	o, _, engine, strat, _, seasonID := newTestOrchestrator(true)
	engine.errs = []error{
		&allocation.PickError{Kind: allocation.KindAlreadyTaken, Message: "gone"},
		nil,
	}

	if err := o.handleDeadline(context.Background(), seasonID); err != nil {
		t.Fatal(err)
	}

	if len(engine.requests) != 2 {
		t.Fatalf("engine calls: got %d, want 2", len(engine.requests))
	}
	if strat.calls != 2 {
		t.Fatalf("strategy calls: got %d, want 2", strat.calls)
	}
	if engine.requests[1].EntryName != "Caterpie" {
		t.Errorf("second attempt picked %q, want a reselected entry", engine.requests[1].EntryName)
	}
}

func TestAutoPickStandsDownWhenSuperseded(t *testing.T) {
	o, _, engine, _, _, seasonID := newTestOrchestrator(true)
	engine.errs = []error{
		&allocation.PickError{Kind: allocation.KindNotYourTurn, Message: "someone picked first"},
	}

	if err := o.handleDeadline(context.Background(), seasonID); err != nil {
		t.Fatal(err)
	}
	if len(engine.requests) != 1 {
		t.Fatalf("engine calls: got %d, want 1 (no retry)", len(engine.requests))
	}
}

func TestHandleEventRoutesClockChanges(t *testing.T) {
	o, _, _, _, clock, seasonID := newTestOrchestrator(true)
	ctx := context.Background()

	started, _ := json.Marshal(events.DraftStartedPayload{
		SeasonID:  seasonID.String(),
		StartedAt: clock.Now(),
	})
	if err := o.HandleEvent(ctx, events.TypeDraftStarted, seasonID, started); err != nil {
		t.Fatal(err)
	}

	paused, _ := json.Marshal(events.DraftPausedPayload{SeasonID: seasonID.String()})
	if err := o.HandleEvent(ctx, events.TypeDraftPaused, seasonID, paused); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Minute)
	expectNoWork(t, o.workCh)

	committed, _ := json.Marshal(events.PickCommittedPayload{
		SeasonID:    seasonID.String(),
		CommittedAt: clock.Now(),
	})
	if err := o.HandleEvent(ctx, events.TypePickCommitted, seasonID, committed); err != nil {
		t.Fatal(err)
	}
	clock.Advance(46 * time.Second)
	expectWork(t, o.workCh, seasonID)
}
