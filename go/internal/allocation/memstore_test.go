package allocation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pokedraftleague/draftd/go/internal/budget"
	"github.com/pokedraftleague/draftd/go/internal/league"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/pool"
	"github.com/pokedraftleague/draftd/go/internal/session"
)

// memStore is an in-memory Store with real transaction semantics: each
// RunAtomic works on a copy of the state and publishes it only on
// success, so a rejected pick leaves nothing behind. A single mutex
// stands in for the database's row locking.
type memStore struct {
	mu    sync.Mutex
	state memState
}

type stagedEvent struct {
	SeasonID  uuid.UUID
	EventType string
	Payload   []byte
}

type memState struct {
	session *models.DraftSession
	entries map[uuid.UUID]*models.PoolEntry
	budgets map[uuid.UUID]*models.Budget // keyed by team ID
	picks   []models.PickRecord
	events  []stagedEvent
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		entries: make(map[uuid.UUID]*models.PoolEntry),
		budgets: make(map[uuid.UUID]*models.Budget),
	}}
}

func (s *memStore) RunAtomic(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(&memTx{state: &draft}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

func (st memState) clone() memState {
	out := memState{
		entries: make(map[uuid.UUID]*models.PoolEntry, len(st.entries)),
		budgets: make(map[uuid.UUID]*models.Budget, len(st.budgets)),
		picks:   append([]models.PickRecord(nil), st.picks...),
		events:  append([]stagedEvent(nil), st.events...),
	}
	if st.session != nil {
		sess := *st.session
		out.session = &sess
	}
	for id, e := range st.entries {
		cp := *e
		out.entries[id] = &cp
	}
	for id, b := range st.budgets {
		cp := *b
		out.budgets[id] = &cp
	}
	return out
}

type memTx struct {
	state *memState
}

func (t *memTx) SessionBySeason(_ context.Context, seasonID uuid.UUID) (*models.DraftSession, error) {
	if t.state.session == nil || t.state.session.SeasonID != seasonID {
		return nil, session.ErrSessionNotFound
	}
	sess := *t.state.session
	return &sess, nil
}

func (t *memTx) EntryByName(_ context.Context, seasonID uuid.UUID, name string) (*models.PoolEntry, error) {
	for _, e := range t.state.entries {
		if e.SeasonID == seasonID && strings.EqualFold(e.Name, strings.TrimSpace(name)) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, pool.ErrEntryNotFound
}

func (t *memTx) ClaimEntry(_ context.Context, entryID, teamID uuid.UUID, at time.Time) (bool, error) {
	e, ok := t.state.entries[entryID]
	if !ok || e.Status != models.PoolEntryStatusAvailable {
		return false, nil
	}
	e.Status = models.PoolEntryStatusDrafted
	e.TeamID = &teamID
	e.DraftedAt = &at
	e.UpdatedAt = at
	return true, nil
}

func (t *memTx) Budget(_ context.Context, teamID, seasonID uuid.UUID) (*models.Budget, error) {
	b, ok := t.state.budgets[teamID]
	if !ok || b.SeasonID != seasonID {
		return nil, budget.ErrBudgetNotFound
	}
	cp := *b
	return &cp, nil
}

func (t *memTx) DebitBudget(_ context.Context, teamID, seasonID uuid.UUID, amount int) (*models.Budget, bool, error) {
	b, ok := t.state.budgets[teamID]
	if !ok || b.SeasonID != seasonID {
		return nil, false, nil
	}
	if b.SpentPoints+amount > b.TotalPoints {
		return nil, false, nil
	}
	b.SpentPoints += amount
	cp := *b
	return &cp, true, nil
}

func (t *memTx) AdvancePick(_ context.Context, sessionID uuid.UUID) (int, error) {
	if t.state.session == nil || t.state.session.ID != sessionID {
		return 0, fmt.Errorf("no session %s", sessionID)
	}
	t.state.session.PicksMade++
	return t.state.session.PicksMade, nil
}

func (t *memTx) CompleteSession(_ context.Context, sessionID uuid.UUID) error {
	if t.state.session == nil || t.state.session.ID != sessionID {
		return fmt.Errorf("no session %s", sessionID)
	}
	t.state.session.Status = models.SessionStatusComplete
	return nil
}

func (t *memTx) InsertPickRecord(_ context.Context, rec models.PickRecord) (*models.PickRecord, error) {
	t.state.picks = append(t.state.picks, rec)
	return &rec, nil
}

func (t *memTx) InsertEvent(_ context.Context, seasonID uuid.UUID, eventType string, payload []byte) error {
	t.state.events = append(t.state.events, stagedEvent{SeasonID: seasonID, EventType: eventType, Payload: payload})
	return nil
}

// conflictStore fails the first n transactions with ErrTxConflict before
// delegating, mimicking serialization failures under contention.
type conflictStore struct {
	inner    Store
	failures int
	calls    int
}

func (s *conflictStore) RunAtomic(ctx context.Context, fn func(tx Tx) error) error {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("%w: could not serialize access", ErrTxConflict)
	}
	return s.inner.RunAtomic(ctx, fn)
}

// fakeLeagues resolves seasons and teams from maps.
type fakeLeagues struct {
	seasons map[uuid.UUID]*models.Season
	teams   map[uuid.UUID]*models.Team
}

func (f *fakeLeagues) GetSeason(_ context.Context, id uuid.UUID) (*models.Season, error) {
	s, ok := f.seasons[id]
	if !ok {
		return nil, league.ErrNotFound
	}
	return s, nil
}

func (f *fakeLeagues) GetTeam(_ context.Context, id uuid.UUID) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, league.ErrNotFound
	}
	return t, nil
}
