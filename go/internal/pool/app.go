package pool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pokedraftleague/draftd/go/internal/events"
	"github.com/pokedraftleague/draftd/go/internal/models"
	"github.com/pokedraftleague/draftd/go/internal/outbox"
	"github.com/pokedraftleague/draftd/go/internal/sqlutil"
)

// App handles draft pool business logic: bulk import at season setup,
// availability queries, and administrative status transitions. The
// available -> drafted transition belongs to the allocation engine alone.
type App struct {
	db     *sql.DB
	repo   *Repository
	outbox *outbox.Repository
}

func NewApp(db *sql.DB, repo *Repository, outboxRepo *outbox.Repository) *App {
	return &App{db: db, repo: repo, outbox: outboxRepo}
}

// ImportPool bulk-upserts entries for a season. Drafted entries are never
// overwritten; they survive re-imports so history and ownership hold.
func (a *App) ImportPool(ctx context.Context, seasonID uuid.UUID, entries []ImportEntry) (*ImportResult, error) {
	result := &ImportResult{}
	for _, e := range entries {
		if e.Name == "" {
			result.Errors = append(result.Errors, "entry with empty name skipped")
			continue
		}
		if e.PointCost <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: point cost must be positive", e.Name))
			continue
		}
		if e.Status == "" {
			e.Status = models.PoolEntryStatusAvailable
		}
		if e.Status == models.PoolEntryStatusDrafted {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: cannot import entries as drafted", e.Name))
			continue
		}

		inserted, err := a.repo.UpsertEntry(ctx, seasonID, e)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to import %s: %w", e.Name, err)
		}
		if inserted {
			result.Imported++
		} else {
			result.Updated++
		}
	}

	log.Info().
		Str("season_id", seasonID.String()).
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Msg("pool import finished")
	return result, nil
}

// ListAvailable returns the draftable pool for a season.
func (a *App) ListAvailable(ctx context.Context, seasonID uuid.UUID, filter ListFilter) ([]models.PoolEntry, error) {
	filter.Status = models.PoolEntryStatusAvailable
	return a.repo.ListEntries(ctx, seasonID, filter)
}

// ListEntries returns pool entries without forcing a status filter.
func (a *App) ListEntries(ctx context.Context, seasonID uuid.UUID, filter ListFilter) ([]models.PoolEntry, error) {
	return a.repo.ListEntries(ctx, seasonID, filter)
}

func (a *App) GetEntryByName(ctx context.Context, seasonID uuid.UUID, name string) (*models.PoolEntry, error) {
	return a.repo.GetEntryByName(ctx, seasonID, name)
}

// ChangeEntryStatus applies an administrative ban/unban/unavailable
// transition and records the change on the outbox in the same transaction.
func (a *App) ChangeEntryStatus(ctx context.Context, change StatusChange) (*models.PoolEntry, error) {
	switch change.NewStatus {
	case models.PoolEntryStatusAvailable, models.PoolEntryStatusBanned, models.PoolEntryStatusUnavailable:
	default:
		return nil, fmt.Errorf("status %q is not an administrative transition", change.NewStatus)
	}

	var updated *models.PoolEntry
	err := sqlutil.Run(ctx, a.db, func(tx *sql.Tx) error {
		repo := a.repo.WithTx(tx)

		before, err := repo.GetEntry(ctx, change.EntryID)
		if err != nil {
			return err
		}
		if before.Status == models.PoolEntryStatusDrafted {
			return fmt.Errorf("entry %s is drafted; ownership changes are not administrative", before.Name)
		}
		if before.Status == change.NewStatus {
			updated = before
			return nil
		}

		updated, err = repo.UpdateEntryStatus(ctx, change.EntryID, change.NewStatus)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(events.EntryStatusChangedPayload{
			SeasonID:  updated.SeasonID.String(),
			EntryID:   updated.ID.String(),
			EntryName: updated.Name,
			OldStatus: string(before.Status),
			NewStatus: string(updated.Status),
			ChangedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal EntryStatusChanged payload: %w", err)
		}
		return a.outbox.WithTx(tx).Insert(ctx, updated.SeasonID, events.TypeEntryStatusChanged, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change entry status: %w", err)
	}

	log.Info().
		Str("entry_id", change.EntryID.String()).
		Str("status", string(change.NewStatus)).
		Msg("pool entry status changed")
	return updated, nil
}
