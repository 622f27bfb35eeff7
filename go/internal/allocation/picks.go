package allocation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/sqlutil"
)

const pickColumns = `id, season_id, team_id, entry_id, entry_name, point_cost, round, pick_number, notes, created_at`

// PickRepository reads the append-only pick history. Writes happen only
// through the engine's commit transaction.
type PickRepository struct {
	db sqlutil.DBTX
}

func NewPickRepository(db sqlutil.DBTX) *PickRepository {
	return &PickRepository{db: db}
}

// ListBySeason returns a season's picks in draft order.
func (r *PickRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.PickRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+pickColumns+`
		FROM draft_picks
		WHERE season_id = $1
		ORDER BY pick_number ASC`,
		seasonID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks by season: %w", err)
	}
	return collectPicks(rows)
}

// ListByTeam returns one team's picks in draft order.
func (r *PickRepository) ListByTeam(ctx context.Context, teamID, seasonID uuid.UUID) ([]models.PickRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+pickColumns+`
		FROM draft_picks
		WHERE team_id = $1 AND season_id = $2
		ORDER BY pick_number ASC`,
		teamID, seasonID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks by team: %w", err)
	}
	return collectPicks(rows)
}

func collectPicks(rows *sql.Rows) ([]models.PickRecord, error) {
	defer rows.Close()

	var picks []models.PickRecord
	for rows.Next() {
		var p models.PickRecord
		var notes sql.NullString
		if err := rows.Scan(&p.ID, &p.SeasonID, &p.TeamID, &p.EntryID, &p.EntryName,
			&p.PointCost, &p.Round, &p.PickNumber, &notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pick record: %w", err)
		}
		p.Notes = sqlutil.FromSqlStringPtr(notes)
		picks = append(picks, p)
	}
	return picks, rows.Err()
}
