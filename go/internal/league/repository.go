package league

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

// ErrNotFound is returned when a season or team does not exist.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateSeason(ctx context.Context, req CreateSeasonRequest) (*models.Season, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO seasons (id, name, active)
		VALUES ($1, $2, $3)
		RETURNING id, name, active, created_at, updated_at`,
		req.ID, req.Name, req.Active,
	)
	season, err := scanSeason(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create season: %w", err)
	}
	return season, nil
}

func (r *Repository) GetSeason(ctx context.Context, id uuid.UUID) (*models.Season, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, active, created_at, updated_at
		FROM seasons WHERE id = $1`,
		id,
	)
	season, err := scanSeason(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get season: %w", err)
	}
	return season, nil
}

func (r *Repository) CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teams (id, season_id, name, coach_name, active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id, season_id, name, coach_name, active, created_at, updated_at`,
		req.ID, req.SeasonID, req.Name, req.CoachName,
	)
	team, err := scanTeam(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (r *Repository) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_id, name, coach_name, active, created_at, updated_at
		FROM teams WHERE id = $1`,
		id,
	)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

func (r *Repository) ListTeamsBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, season_id, name, coach_name, active, created_at, updated_at
		FROM teams WHERE season_id = $1
		ORDER BY name`,
		seasonID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by season: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *team)
	}
	return teams, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeason(row rowScanner) (*models.Season, error) {
	var s models.Season
	if err := row.Scan(&s.ID, &s.Name, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var t models.Team
	if err := row.Scan(&t.ID, &t.SeasonID, &t.Name, &t.CoachName, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
