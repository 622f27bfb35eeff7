package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pokedraftleague/draftd/go/internal/allocation"
	"github.com/pokedraftleague/draftd/go/internal/budget"
	"github.com/pokedraftleague/draftd/go/internal/league"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/pool"
	"github.com/pokedraftleague/draftd/go/internal/session"
)

// PickSubmitter is the engine surface the gateway calls. Every pick from
// every caller goes through it; the gateway adds no eligibility logic of
// its own.
type PickSubmitter interface {
	SubmitPick(ctx context.Context, req allocation.SubmitPickRequest) (*allocation.PickReceipt, error)
}

// PickHistory reads the committed pick log.
type PickHistory interface {
	ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.PickRecord, error)
	ListByTeam(ctx context.Context, teamID, seasonID uuid.UUID) ([]models.PickRecord, error)
}

// Service is the HTTP + WebSocket surface of the draft engine.
type Service struct {
	engine   PickSubmitter
	picks    PickHistory
	pools    *pool.App
	budgets  *budget.App
	sessions *session.App
	leagues  *league.App
	cm       *ConnectionManager
}

func NewService(engine PickSubmitter, picks PickHistory, pools *pool.App, budgets *budget.App,
	sessions *session.App, leagues *league.App, cm *ConnectionManager) *Service {
	return &Service{
		engine:   engine,
		picks:    picks,
		pools:    pools,
		budgets:  budgets,
		sessions: sessions,
		leagues:  leagues,
		cm:       cm,
	}
}

// RegisterRoutes mounts the draft API on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/draft/pick", s.handleSubmitPick)
	mux.HandleFunc("GET /api/draft/available", s.handleListAvailable)
	mux.HandleFunc("GET /api/draft/team-status", s.handleTeamStatus)
	mux.HandleFunc("GET /api/draft/session", s.handleGetSession)
	mux.HandleFunc("GET /api/draft/picks", s.handleListPicks)

	mux.HandleFunc("POST /api/admin/seasons", s.handleCreateSeason)
	mux.HandleFunc("POST /api/admin/teams", s.handleCreateTeam)
	mux.HandleFunc("POST /api/admin/budgets", s.handleCreateBudget)
	mux.HandleFunc("POST /api/admin/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/admin/sessions/start", s.handleStartSession)
	mux.HandleFunc("POST /api/admin/sessions/pause", s.handlePauseSession)
	mux.HandleFunc("POST /api/admin/sessions/resume", s.handleResumeSession)
	mux.HandleFunc("POST /api/admin/pool/import", s.handleImportPool)
	mux.HandleFunc("POST /api/admin/pool/status", s.handleChangeEntryStatus)

	mux.HandleFunc("GET /ws/draft", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
}
