package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pokedraftleague/draftd/go/internal/budget"
	"github.com/pokedraftleague/draftd/go/internal/events"
	"github.com/pokedraftleague/draftd/go/internal/league"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/pool"
	"github.com/pokedraftleague/draftd/go/internal/session"
)

// maxAttempts bounds internal retries on optimistic-concurrency
// conflicts. Business-rule rejections never retry.
const maxAttempts = 3

// Engine is the sole authority for turning a pick request into a durable,
// consistent state change across pool, budget, history, and session.
type Engine struct {
	store   Store
	leagues LeagueResolver
	clock   clockwork.Clock
}

func NewEngine(store Store, leagues LeagueResolver, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{store: store, leagues: leagues, clock: clock}
}

// SubmitPick validates and commits one pick request. Every rejection is
// a typed *PickError with no partial state change; a concurrency loss
// for the entry surfaces as AlreadyTaken, exactly like arriving second.
func (e *Engine) SubmitPick(ctx context.Context, req SubmitPickRequest) (*PickReceipt, error) {
	if req.EntryName == "" {
		return nil, unknownEntity(req.EntryName)
	}

	if _, err := e.leagues.GetSeason(ctx, req.SeasonID); err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return nil, notFound("season %s does not exist", req.SeasonID)
		}
		return nil, fmt.Errorf("failed to resolve season: %w", err)
	}
	team, err := e.leagues.GetTeam(ctx, req.TeamID)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			return nil, notFound("team %s does not exist", req.TeamID)
		}
		return nil, fmt.Errorf("failed to resolve team: %w", err)
	}
	if !team.Active || team.SeasonID != req.SeasonID {
		return nil, notFound("team %s is not active in season %s", req.TeamID, req.SeasonID)
	}

	var receipt *PickReceipt
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		receipt, err = e.submitOnce(ctx, req)
		if err == nil {
			break
		}
		if errors.Is(err, ErrTxConflict) {
			log.Warn().
				Int("attempt", attempt).
				Str("season_id", req.SeasonID.String()).
				Str("entry", req.EntryName).
				Msg("pick commit conflicted, retrying")
			if attempt == maxAttempts {
				return nil, transientConflict(maxAttempts)
			}
			continue
		}
		return nil, err
	}

	log.Info().
		Str("season_id", req.SeasonID.String()).
		Str("team_id", req.TeamID.String()).
		Str("entry", receipt.Pick.EntryName).
		Int("point_cost", receipt.Pick.PointCost).
		Int("pick_number", receipt.Pick.PickNumber).
		Int("remaining", receipt.Budget.Remaining()).
		Msg("pick committed")
	return receipt, nil
}

// submitOnce is one atomic attempt. The validation sequence short-circuits
// on the first failure; the conditional writes behind each check make the
// database the final arbiter, so a check that raced simply fails its
// write and the whole transaction rolls back.
func (e *Engine) submitOnce(ctx context.Context, req SubmitPickRequest) (*PickReceipt, error) {
	var receipt *PickReceipt
	err := e.store.RunAtomic(ctx, func(tx Tx) error {
		sess, err := tx.SessionBySeason(ctx, req.SeasonID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				return notFound("season %s has no draft session", req.SeasonID)
			}
			return err
		}
		if sess.Status != models.SessionStatusInProgress {
			return sessionClosed(string(sess.Status))
		}

		entry, err := tx.EntryByName(ctx, req.SeasonID, req.EntryName)
		if err != nil {
			if errors.Is(err, pool.ErrEntryNotFound) {
				return unknownEntity(req.EntryName)
			}
			return err
		}
		if entry.Status != models.PoolEntryStatusAvailable {
			return alreadyTaken(entry.Name)
		}

		now := e.clock.Now().UTC()
		claimed, err := tx.ClaimEntry(ctx, entry.ID, req.TeamID, now)
		if err != nil {
			return err
		}
		if !claimed {
			// Lost the compare-and-swap: someone else drafted it between
			// our read and our write.
			return alreadyTaken(entry.Name)
		}

		bud, err := tx.Budget(ctx, req.TeamID, req.SeasonID)
		if err != nil {
			if errors.Is(err, budget.ErrBudgetNotFound) {
				return noBudget()
			}
			return err
		}
		if bud.Remaining() < entry.PointCost {
			return insufficientBudget(entry.PointCost, bud.Remaining())
		}

		debited, ok, err := tx.DebitBudget(ctx, req.TeamID, req.SeasonID, entry.PointCost)
		if err != nil {
			return err
		}
		if !ok {
			// Second line of defense: a concurrent pick by the same team
			// consumed the balance after our read.
			return insufficientBudget(entry.PointCost, bud.Remaining())
		}

		// The counter both assigns the gap-free sequence number and
		// serializes same-season commits; everything before this point
		// runs concurrently across unrelated entries.
		seq, err := tx.AdvancePick(ctx, sess.ID)
		if err != nil {
			return err
		}
		if seq > sess.Settings.TotalPicks() {
			return sessionClosed("out of picks")
		}

		if sess.Settings.TurnEnforcement {
			// picksMade before this commit is seq-1; the assigned number
			// makes the turn check exact even when requests raced.
			turn, ok := session.ComputeCurrentTurn(sess.Settings, seq-1)
			if !ok {
				return sessionClosed("out of picks")
			}
			if turn.TeamID != req.TeamID {
				return notYourTurn(turn.TeamID.String())
			}
		}

		rec, err := tx.InsertPickRecord(ctx, models.PickRecord{
			ID:         uuid.New(),
			SeasonID:   req.SeasonID,
			TeamID:     req.TeamID,
			EntryID:    entry.ID,
			EntryName:  entry.Name,
			PointCost:  entry.PointCost,
			Round:      session.RoundOf(sess.Settings, seq),
			PickNumber: seq,
			Notes:      auditNotes(req),
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}

		if err := e.stagePickEvent(ctx, tx, rec, debited, now); err != nil {
			return err
		}

		if session.IsComplete(sess.Settings, seq) {
			if err := tx.CompleteSession(ctx, sess.ID); err != nil {
				return err
			}
			if err := e.stageCompletedEvent(ctx, tx, sess, seq, now); err != nil {
				return err
			}
		}

		receipt = &PickReceipt{Pick: rec, Budget: debited}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (e *Engine) stagePickEvent(ctx context.Context, tx Tx, rec *models.PickRecord, bud *models.Budget, at time.Time) error {
	payload, err := json.Marshal(events.PickCommittedPayload{
		PickID:          rec.ID.String(),
		SeasonID:        rec.SeasonID.String(),
		TeamID:          rec.TeamID.String(),
		EntryID:         rec.EntryID.String(),
		EntryName:       rec.EntryName,
		PointCost:       rec.PointCost,
		Round:           rec.Round,
		PickNumber:      rec.PickNumber,
		RemainingPoints: bud.Remaining(),
		CommittedAt:     at,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal PickCommitted payload: %w", err)
	}
	return tx.InsertEvent(ctx, rec.SeasonID, events.TypePickCommitted, payload)
}

func (e *Engine) stageCompletedEvent(ctx context.Context, tx Tx, sess *models.DraftSession, totalPicks int, at time.Time) error {
	payload, err := json.Marshal(events.DraftCompletedPayload{
		SeasonID:    sess.SeasonID.String(),
		CompletedAt: at,
		TotalPicks:  totalPicks,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal DraftCompleted payload: %w", err)
	}
	return tx.InsertEvent(ctx, sess.SeasonID, events.TypeDraftCompleted, payload)
}

// auditNotes folds bot-supplied hints into the record's notes. Hints are
// annotation only; the committed round and sequence number are always
// the engine's own.
func auditNotes(req SubmitPickRequest) *string {
	var notes string
	if req.Notes != nil {
		notes = *req.Notes
	}
	if req.RoundHint != nil || req.PickHint != nil {
		hint := "submitter hint:"
		if req.RoundHint != nil {
			hint += fmt.Sprintf(" round=%d", *req.RoundHint)
		}
		if req.PickHint != nil {
			hint += fmt.Sprintf(" pick=%d", *req.PickHint)
		}
		if notes != "" {
			notes += "; "
		}
		notes += hint
	}
	if notes == "" {
		return nil
	}
	return &notes
}
