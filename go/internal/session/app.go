package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pokedraftleague/draftd/go/internal/events"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/outbox"
	"github.com/pokedraftleague/draftd/go/internal/sqlutil"
)

// App handles draft session lifecycle: creation at season setup and the
// start/pause/resume transitions. The pick pointer itself only moves
// inside the allocation engine's commit transaction.
type App struct {
	db     *sql.DB
	repo   *Repository
	outbox *outbox.Repository
}

func NewApp(db *sql.DB, repo *Repository, outboxRepo *outbox.Repository) *App {
	return &App{db: db, repo: repo, outbox: outboxRepo}
}

func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.DraftSession, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.Settings.Rounds <= 0 {
		req.Settings.Rounds = DefaultRounds
	}
	if req.Settings.TimePerPickSec <= 0 {
		req.Settings.TimePerPickSec = DefaultTimePerPickSec
	}
	if req.Settings.DraftType == "" {
		req.Settings.DraftType = models.DraftTypeSnake
	}
	if len(req.Settings.DraftOrder) == 0 {
		return nil, fmt.Errorf("draft order is empty, cannot create session")
	}
	seen := make(map[uuid.UUID]bool, len(req.Settings.DraftOrder))
	for _, teamID := range req.Settings.DraftOrder {
		if seen[teamID] {
			return nil, fmt.Errorf("draft order lists team %s twice", teamID)
		}
		seen[teamID] = true
	}

	s, err := a.repo.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", s.ID.String()).
		Str("season_id", s.SeasonID.String()).
		Int("rounds", s.Settings.Rounds).
		Int("teams", len(s.Settings.DraftOrder)).
		Msg("created draft session")
	return s, nil
}

func (a *App) GetSessionBySeason(ctx context.Context, seasonID uuid.UUID) (*models.DraftSession, error) {
	return a.repo.GetSessionBySeason(ctx, seasonID)
}

// CurrentTurn resolves the team on the clock for a season.
func (a *App) CurrentTurn(ctx context.Context, seasonID uuid.UUID) (*Turn, error) {
	s, err := a.repo.GetSessionBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	turn, ok := ComputeCurrentTurn(s.Settings, s.PicksMade)
	if !ok {
		return nil, nil
	}
	return &turn, nil
}

// Start moves the session to IN_PROGRESS and emits DraftStarted.
func (a *App) Start(ctx context.Context, seasonID uuid.UUID) (*models.DraftSession, error) {
	return a.transition(ctx, seasonID, models.SessionStatusNotStarted, models.SessionStatusInProgress, func(s *models.DraftSession) (string, []byte, error) {
		payload, err := json.Marshal(events.DraftStartedPayload{
			SeasonID:    s.SeasonID.String(),
			SessionID:   s.ID.String(),
			StartedAt:   time.Now().UTC(),
			TotalRounds: s.Settings.Rounds,
			TotalPicks:  s.Settings.TotalPicks(),
		})
		return events.TypeDraftStarted, payload, err
	})
}

// Pause suspends an in-progress session and emits DraftPaused.
func (a *App) Pause(ctx context.Context, seasonID uuid.UUID, reason string) (*models.DraftSession, error) {
	return a.transition(ctx, seasonID, models.SessionStatusInProgress, models.SessionStatusPaused, func(s *models.DraftSession) (string, []byte, error) {
		payload, err := json.Marshal(events.DraftPausedPayload{
			SeasonID: s.SeasonID.String(),
			PausedAt: time.Now().UTC(),
			Reason:   reason,
		})
		return events.TypeDraftPaused, payload, err
	})
}

// Resume restarts a paused session and emits DraftResumed.
func (a *App) Resume(ctx context.Context, seasonID uuid.UUID) (*models.DraftSession, error) {
	return a.transition(ctx, seasonID, models.SessionStatusPaused, models.SessionStatusInProgress, func(s *models.DraftSession) (string, []byte, error) {
		payload, err := json.Marshal(events.DraftResumedPayload{
			SeasonID:  s.SeasonID.String(),
			ResumedAt: time.Now().UTC(),
		})
		return events.TypeDraftResumed, payload, err
	})
}

func (a *App) transition(ctx context.Context, seasonID uuid.UUID, from, to models.SessionStatus,
	event func(*models.DraftSession) (string, []byte, error)) (*models.DraftSession, error) {

	var updated *models.DraftSession
	err := sqlutil.Run(ctx, a.db, func(tx *sql.Tx) error {
		repo := a.repo.WithTx(tx)

		s, err := repo.GetSessionForUpdate(ctx, seasonID)
		if err != nil {
			return err
		}
		if s.Status == to {
			updated = s
			return nil
		}
		if s.Status != from {
			return fmt.Errorf("cannot move session from %s to %s", s.Status, to)
		}

		updated, err = repo.UpdateStatus(ctx, s.ID, to)
		if err != nil {
			return err
		}

		eventType, payload, err := event(updated)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
		}
		return a.outbox.WithTx(tx).Insert(ctx, seasonID, eventType, payload)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("season_id", seasonID.String()).
		Str("status", string(updated.Status)).
		Msg("draft session transitioned")
	return updated, nil
}
