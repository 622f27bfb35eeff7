package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"

	"github.com/pokedraftleague/draftd/go/internal/allocation"
	"github.com/pokedraftleague/draftd/go/internal/budget"
	"github.com/pokedraftleague/draftd/go/internal/gateway"
	"github.com/pokedraftleague/draftd/go/internal/league"
	"github.com/pokedraftleague/draftd/go/internal/outbox"
	"github.com/pokedraftleague/draftd/go/internal/pool"
	"github.com/pokedraftleague/draftd/go/internal/session"
)

type Services struct {
	Gateway     *gateway.Service
	ConnManager *gateway.ConnectionManager
}

// setupServices wires the dependency chain:
// repositories -> apps -> engine -> gateway.
func setupServices(db *sql.DB) *Services {
	outboxRepo := outbox.NewRepository(db)

	poolRepo := pool.NewRepository(db)
	budgetRepo := budget.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	leagueRepo := league.NewRepository(db)
	pickRepo := allocation.NewPickRepository(db)

	poolApp := pool.NewApp(db, poolRepo, outboxRepo)
	budgetApp := budget.NewApp(budgetRepo)
	sessionApp := session.NewApp(db, sessionRepo, outboxRepo)
	leagueApp := league.NewApp(leagueRepo)

	store := allocation.NewPostgresStore(db, poolRepo, budgetRepo, sessionRepo, outboxRepo)
	engine := allocation.NewEngine(store, leagueApp, clockwork.NewRealClock())

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	svc := gateway.NewService(engine, pickRepo, poolApp, budgetApp, sessionApp, leagueApp, cm)

	return &Services{
		Gateway:     svc,
		ConnManager: cm,
	}
}
