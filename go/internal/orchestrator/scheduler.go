package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// scheduleNextPick arms a one-shot timer for the season's next deadline.
// baseTime is the moment the clock started (commit or start/resume time),
// so redelivered events with the same baseTime are idempotent.
func (o *Orchestrator) scheduleNextPick(ctx context.Context, seasonID uuid.UUID, baseTime time.Time) error {
	o.lastScheduledMu.Lock()
	if last, ok := o.lastScheduled[seasonID]; ok && last.Equal(baseTime) {
		o.lastScheduledMu.Unlock()
		log.Debug().
			Str("season_id", seasonID.String()).
			Time("base_time", baseTime).
			Msg("already scheduled for this base time, skipping")
		return nil
	}
	o.lastScheduled[seasonID] = baseTime
	o.lastScheduledMu.Unlock()

	timeout, err := o.getPickTime(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("failed to get pick time: %w", err)
	}

	deadline := baseTime.Add(timeout)
	wait := deadline.Sub(o.clock.Now())
	if wait <= 0 {
		// Replaying an old event after downtime; the deadline has passed.
		wait = time.Millisecond
	}

	timer := o.clock.NewTimer(wait)
	o.replaceTimer(seasonID, timer)

	go func(id uuid.UUID, t clockwork.Timer) {
		select {
		case <-t.Chan():
			o.removeTimer(id)
			o.lastScheduledMu.Lock()
			delete(o.lastScheduled, id)
			o.lastScheduledMu.Unlock()

			select {
			case o.workCh <- id:
			default:
				log.Warn().Str("season_id", id.String()).Msg("timer fired but work channel full")
			}
		case <-ctx.Done():
			stopAndDrainTimer(t)
			o.removeTimer(id)
			o.lastScheduledMu.Lock()
			delete(o.lastScheduled, id)
			o.lastScheduledMu.Unlock()
		}
	}(seasonID, timer)

	log.Debug().
		Str("season_id", seasonID.String()).
		Time("deadline", deadline).
		Dur("wait", wait).
		Msg("armed pick clock")
	return nil
}

func (o *Orchestrator) getPickTime(ctx context.Context, seasonID uuid.UUID) (time.Duration, error) {
	sess, err := o.sessions.GetSessionBySeason(ctx, seasonID)
	if err != nil {
		return 0, err
	}
	return time.Duration(sess.Settings.TimePerPickSec) * time.Second, nil
}

// replaceTimer swaps in a new timer, cancelling any existing one under
// the same lock so no stale timer survives the exchange.
func (o *Orchestrator) replaceTimer(seasonID uuid.UUID, newTimer clockwork.Timer) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if existing, ok := o.activeTimers[seasonID]; ok {
		stopAndDrainTimer(existing)
	}
	o.activeTimers[seasonID] = newTimer
}

func (o *Orchestrator) cancelTimer(seasonID uuid.UUID) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if timer, ok := o.activeTimers[seasonID]; ok {
		stopAndDrainTimer(timer)
		delete(o.activeTimers, seasonID)

		o.lastScheduledMu.Lock()
		delete(o.lastScheduled, seasonID)
		o.lastScheduledMu.Unlock()

		log.Debug().Str("season_id", seasonID.String()).Msg("cancelled pick clock")
	}
}

func (o *Orchestrator) removeTimer(seasonID uuid.UUID) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	delete(o.activeTimers, seasonID)
}

// stopAndDrainTimer stops a timer and drains its channel, per the
// time.Timer.Stop contract.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
