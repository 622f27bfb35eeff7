package league

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

// LeagueRepository defines what the app layer needs from the league repository
type LeagueRepository interface {
	CreateSeason(ctx context.Context, req CreateSeasonRequest) (*models.Season, error)
	GetSeason(ctx context.Context, id uuid.UUID) (*models.Season, error)
	CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListTeamsBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.Team, error)
}

// App handles season and team business logic
type App struct {
	repo LeagueRepository
}

func NewApp(repo LeagueRepository) *App {
	return &App{repo: repo}
}

func (a *App) CreateSeason(ctx context.Context, req CreateSeasonRequest) (*models.Season, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("season name is required")
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	season, err := a.repo.CreateSeason(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create season: %w", err)
	}
	return season, nil
}

func (a *App) GetSeason(ctx context.Context, id uuid.UUID) (*models.Season, error) {
	return a.repo.GetSeason(ctx, id)
}

func (a *App) CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if _, err := a.repo.GetSeason(ctx, req.SeasonID); err != nil {
		return nil, fmt.Errorf("failed to resolve season for team: %w", err)
	}
	team, err := a.repo.CreateTeam(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (a *App) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	return a.repo.GetTeam(ctx, id)
}

func (a *App) ListTeamsBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.Team, error) {
	return a.repo.ListTeamsBySeason(ctx, seasonID)
}
