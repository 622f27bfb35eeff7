package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pokedraftleague/draftd/go/internal/allocation"
	"github.com/pokedraftleague/draftd/go/internal/budget"
	"github.com/pokedraftleague/draftd/go/internal/league"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/pool"
	"github.com/pokedraftleague/draftd/go/internal/session"
)

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Required  int    `json:"required,omitempty"`
	Available int    `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// pickErrorStatus maps rejection kinds onto the HTTP contract. Callers
// distinguish "retry the same request" (503) from everything else.
func pickErrorStatus(kind allocation.Kind) int {
	switch kind {
	case allocation.KindNotFound, allocation.KindUnknownEntity:
		return http.StatusNotFound
	case allocation.KindAlreadyTaken, allocation.KindSessionClosed:
		return http.StatusConflict
	case allocation.KindNoBudget, allocation.KindInsufficientBudget:
		return http.StatusPaymentRequired
	case allocation.KindNotYourTurn:
		return http.StatusForbidden
	case allocation.KindTransientConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Service) handleSubmitPick(w http.ResponseWriter, r *http.Request) {
	var req allocation.SubmitPickRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed pick request: %v", err))
		return
	}
	if req.TeamID == uuid.Nil || req.SeasonID == uuid.Nil || req.EntryName == "" {
		writeError(w, http.StatusBadRequest, "team_id, season_id and entry_name are required")
		return
	}

	receipt, err := s.engine.SubmitPick(r.Context(), req)
	if err != nil {
		if pe, ok := allocation.AsPickError(err); ok {
			writeJSON(w, pickErrorStatus(pe.Kind), errorResponse{
				Error:     pe.Message,
				Kind:      string(pe.Kind),
				Required:  pe.Required,
				Available: pe.Available,
			})
			return
		}
		log.Error().Err(err).Msg("pick submission failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Service) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := queryUUID(w, r, "season_id")
	if !ok {
		return
	}

	filter := pool.ListFilter{Search: r.URL.Query().Get("search")}
	var err error
	if filter.MinPoints, err = queryInt(r, "min_points"); err != nil {
		writeError(w, http.StatusBadRequest, "min_points must be an integer")
		return
	}
	if filter.MaxPoints, err = queryInt(r, "max_points"); err != nil {
		writeError(w, http.StatusBadRequest, "max_points must be an integer")
		return
	}

	entries, err := s.pools.ListAvailable(r.Context(), seasonID, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to list available entries")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []models.PoolEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (s *Service) handleTeamStatus(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := queryUUID(w, r, "season_id")
	if !ok {
		return
	}
	teamID, ok := queryUUID(w, r, "team_id")
	if !ok {
		return
	}

	team, err := s.leagues.GetTeam(r.Context(), teamID)
	if err != nil {
		if errors.Is(err, league.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		log.Error().Err(err).Msg("failed to get team")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	b, err := s.budgets.GetBudget(r.Context(), teamID, seasonID)
	if err != nil {
		if errors.Is(err, budget.ErrBudgetNotFound) {
			writeError(w, http.StatusNotFound, "no budget for this team and season")
			return
		}
		log.Error().Err(err).Msg("failed to get budget")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	picks, err := s.picks.ListByTeam(r.Context(), teamID, seasonID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list team picks")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if picks == nil {
		picks = []models.PickRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"team":      team,
		"budget":    b,
		"remaining": b.Remaining(),
		"picks":     picks,
	})
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := queryUUID(w, r, "season_id")
	if !ok {
		return
	}

	sess, err := s.sessions.GetSessionBySeason(r.Context(), seasonID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "no draft session for this season")
			return
		}
		log.Error().Err(err).Msg("failed to get session")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{"session": sess}
	if turn, ok := session.ComputeCurrentTurn(sess.Settings, sess.PicksMade); ok {
		resp["current_turn"] = turn
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleListPicks(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := queryUUID(w, r, "season_id")
	if !ok {
		return
	}
	picks, err := s.picks.ListBySeason(r.Context(), seasonID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list season picks")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if picks == nil {
		picks = []models.PickRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"picks": picks, "count": len(picks)})
}

func (s *Service) handleCreateSeason(w http.ResponseWriter, r *http.Request) {
	var req league.CreateSeasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	season, err := s.leagues.CreateSeason(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, season)
}

func (s *Service) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req league.CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	team, err := s.leagues.CreateTeam(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Service) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budget.CreateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	b, err := s.budgets.CreateBudget(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	sess, err := s.sessions.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

type sessionTransitionRequest struct {
	SeasonID uuid.UUID `json:"season_id"`
	Reason   string    `json:"reason,omitempty"`
}

func (s *Service) handleStartSession(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func(req sessionTransitionRequest) (*models.DraftSession, error) {
		return s.sessions.Start(r.Context(), req.SeasonID)
	})
}

func (s *Service) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func(req sessionTransitionRequest) (*models.DraftSession, error) {
		return s.sessions.Pause(r.Context(), req.SeasonID, req.Reason)
	})
}

func (s *Service) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func(req sessionTransitionRequest) (*models.DraftSession, error) {
		return s.sessions.Resume(r.Context(), req.SeasonID)
	})
}

func (s *Service) handleTransition(w http.ResponseWriter, r *http.Request,
	fn func(sessionTransitionRequest) (*models.DraftSession, error)) {

	var req sessionTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SeasonID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "season_id is required")
		return
	}

	sess, err := fn(req)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "no draft session for this season")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type importPoolRequest struct {
	SeasonID uuid.UUID          `json:"season_id"`
	Entries  []pool.ImportEntry `json:"entries"`
}

func (s *Service) handleImportPool(w http.ResponseWriter, r *http.Request) {
	var req importPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SeasonID == uuid.Nil || len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "season_id and entries are required")
		return
	}

	result, err := s.pools.ImportPool(r.Context(), req.SeasonID, req.Entries)
	if err != nil {
		log.Error().Err(err).Msg("pool import failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleChangeEntryStatus(w http.ResponseWriter, r *http.Request) {
	var change pool.StatusChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if change.EntryID == uuid.Nil || change.NewStatus == "" {
		writeError(w, http.StatusBadRequest, "entry_id and new_status are required")
		return
	}

	entry, err := s.pools.ChangeEntryStatus(r.Context(), change)
	if err != nil {
		if errors.Is(err, pool.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "pool entry not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleWebSocket joins a season room. The snapshot pushed on connect
// carries the authoritative session state, so clients that reconnect
// simply re-render instead of chasing missed events.
func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := queryUUID(w, r, "season_id")
	if !ok {
		return
	}

	sess, err := s.sessions.GetSessionBySeason(r.Context(), seasonID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "no draft session for this season")
			return
		}
		log.Error().Err(err).Msg("failed to load session for websocket snapshot")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	snapshot, err := s.buildSnapshot(sess)
	if err != nil {
		log.Error().Err(err).Msg("failed to build snapshot")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.cm.Upgrade(w, r, seasonID, snapshot); err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
	}
}

func (s *Service) buildSnapshot(sess *models.DraftSession) (*DraftEvent, error) {
	sessJSON, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	payload := SnapshotPayload{Session: sessJSON, PicksMade: sess.PicksMade}
	if turn, ok := session.ComputeCurrentTurn(sess.Settings, sess.PicksMade); ok {
		turnJSON, err := json.Marshal(turn)
		if err != nil {
			return nil, fmt.Errorf("marshal turn: %w", err)
		}
		payload.CurrentTurn = turnJSON
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot payload: %w", err)
	}
	return &DraftEvent{
		ID:        uuid.New().String(),
		SeasonID:  sess.SeasonID.String(),
		Type:      TypeSnapshot,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.cm.Stats(),
	})
}

func queryUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		writeError(w, http.StatusBadRequest, key+" is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, key+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
