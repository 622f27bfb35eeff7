package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pokedraftleague/draftd/go/internal/allocation"
	"github.com/pokedraftleague/draftd/go/internal/events"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/session"
)

// PickSubmitter is the engine surface the orchestrator drives. Auto-picks
// travel the exact same path as human picks, so every eligibility rule
// and budget check applies to them too.
type PickSubmitter interface {
	SubmitPick(ctx context.Context, req allocation.SubmitPickRequest) (*allocation.PickReceipt, error)
}

// SessionSource reads draft sessions.
type SessionSource interface {
	GetSessionBySeason(ctx context.Context, seasonID uuid.UUID) (*models.DraftSession, error)
}

// Orchestrator runs the pick clock: it consumes draft events, arms one
// timer per in-progress season, and fires an auto-pick when a team's
// clock expires. It keeps no durable state of its own; a restart
// re-arms from the event stream.
type Orchestrator struct {
	engine   PickSubmitter
	sessions SessionSource
	strat    Strategy
	clock    clockwork.Clock

	instanceID string
	numWorkers int
	workCh     chan uuid.UUID

	activeTimers   map[uuid.UUID]clockwork.Timer
	activeTimersMu sync.Mutex

	lastScheduled   map[uuid.UUID]time.Time
	lastScheduledMu sync.Mutex

	consumer *Consumer
}

func NewOrchestrator(engine PickSubmitter, sessions SessionSource, strat Strategy, clock clockwork.Clock) *Orchestrator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	numWorkers := 4
	return &Orchestrator{
		engine:        engine,
		sessions:      sessions,
		strat:         strat,
		clock:         clock,
		instanceID:    uuid.New().String()[:8],
		numWorkers:    numWorkers,
		workCh:        make(chan uuid.UUID, numWorkers*2),
		activeTimers:  make(map[uuid.UUID]clockwork.Timer),
		lastScheduled: make(map[uuid.UUID]time.Time),
	}
}

// HandleEvent routes one draft event to the clock logic.
func (o *Orchestrator) HandleEvent(ctx context.Context, eventType string, seasonID uuid.UUID, payload []byte) error {
	switch eventType {
	case events.TypeDraftStarted:
		var p events.DraftStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal DraftStarted payload: %w", err)
		}
		return o.scheduleNextPick(ctx, seasonID, p.StartedAt)

	case events.TypeDraftResumed:
		var p events.DraftResumedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal DraftResumed payload: %w", err)
		}
		return o.scheduleNextPick(ctx, seasonID, p.ResumedAt)

	case events.TypePickCommitted:
		var p events.PickCommittedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal PickCommitted payload: %w", err)
		}
		return o.scheduleNextPick(ctx, seasonID, p.CommittedAt)

	case events.TypeDraftPaused, events.TypeDraftCompleted:
		o.cancelTimer(seasonID)
		return nil

	default:
		// Pool admin events carry no clock consequences.
		return nil
	}
}

// handleDeadline fires when a team's clock runs out. It re-reads the
// session rather than trusting the timer: a pause or a last-second pick
// may have landed while the timer was in flight.
func (o *Orchestrator) handleDeadline(ctx context.Context, seasonID uuid.UUID) error {
	sess, err := o.sessions.GetSessionBySeason(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("failed to load session for deadline: %w", err)
	}
	if sess.Status != models.SessionStatusInProgress {
		log.Info().
			Str("season_id", seasonID.String()).
			Str("status", string(sess.Status)).
			Msg("deadline fired but session is not in progress; ignoring")
		return nil
	}
	if !sess.Settings.AutoDraft {
		log.Info().
			Str("season_id", seasonID.String()).
			Msg("pick clock expired; auto-draft disabled, leaving the pick to the league")
		return nil
	}

	turn, ok := session.ComputeCurrentTurn(sess.Settings, sess.PicksMade)
	if !ok {
		return nil
	}

	return o.autoPick(ctx, seasonID, turn.TeamID)
}

// autoPick selects an entry and submits it through the engine. A lost
// race on the selected entry just means someone picked in the final
// moment; re-select and try again a couple of times before giving up.
func (o *Orchestrator) autoPick(ctx context.Context, seasonID, teamID uuid.UUID) error {
	const selectAttempts = 3

	for attempt := 1; attempt <= selectAttempts; attempt++ {
		entryName, err := o.strat.SelectEntry(ctx, seasonID, teamID)
		if err != nil {
			return fmt.Errorf("auto-pick selection failed: %w", err)
		}

		notes := "auto-pick: clock expired"
		receipt, err := o.engine.SubmitPick(ctx, allocation.SubmitPickRequest{
			TeamID:    teamID,
			SeasonID:  seasonID,
			EntryName: entryName,
			Notes:     &notes,
		})
		if err == nil {
			log.Info().
				Str("season_id", seasonID.String()).
				Str("team_id", teamID.String()).
				Str("entry", receipt.Pick.EntryName).
				Int("pick_number", receipt.Pick.PickNumber).
				Msg("auto-pick committed")
			return nil
		}

		pe, ok := allocation.AsPickError(err)
		if !ok {
			return fmt.Errorf("auto-pick submit failed: %w", err)
		}
		switch pe.Kind {
		case allocation.KindAlreadyTaken, allocation.KindTransientConflict:
			log.Warn().
				Str("season_id", seasonID.String()).
				Str("entry", entryName).
				Str("kind", string(pe.Kind)).
				Int("attempt", attempt).
				Msg("auto-pick lost a race, reselecting")
			continue
		case allocation.KindNotYourTurn, allocation.KindSessionClosed:
			// A human pick or a pause landed between the timer firing and
			// our submit. The event it produced re-arms or clears the clock.
			log.Info().
				Str("season_id", seasonID.String()).
				Str("kind", string(pe.Kind)).
				Msg("auto-pick superseded by a state change")
			return nil
		default:
			return fmt.Errorf("auto-pick rejected: %w", err)
		}
	}
	return fmt.Errorf("auto-pick gave up after %d selection attempts", selectAttempts)
}
