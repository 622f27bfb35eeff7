package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pokedraftleague/draftd/go/internal/allocation"
	"github.com/pokedraftleague/draftd/go/internal/budget"
	"github.com/pokedraftleague/draftd/go/internal/dbconfig"
	"github.com/pokedraftleague/draftd/go/internal/league"
	"github.com/pokedraftleague/draftd/go/internal/orchestrator"
	"github.com/pokedraftleague/draftd/go/internal/outbox"
	"github.com/pokedraftleague/draftd/go/internal/pool"
	"github.com/pokedraftleague/draftd/go/internal/session"
)

// Pick-clock worker: consumes draft events, runs one timer per
// in-progress season, and auto-drafts through the allocation engine
// when a team's clock expires.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	if level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	db, err := dbconfig.NewConfigFromEnv().Open()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	outboxRepo := outbox.NewRepository(db)
	poolRepo := pool.NewRepository(db)
	budgetRepo := budget.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	leagueApp := league.NewApp(league.NewRepository(db))
	sessionApp := session.NewApp(db, sessionRepo, outboxRepo)

	store := allocation.NewPostgresStore(db, poolRepo, budgetRepo, sessionRepo, outboxRepo)
	engine := allocation.NewEngine(store, leagueApp, clockwork.NewRealClock())
	strat := orchestrator.NewCheapestAffordableStrategy(poolRepo, budgetRepo)

	consumerCfg := orchestrator.DefaultConsumerConfig()
	consumerCfg.URL = getEnv("NATS_URL", consumerCfg.URL)
	consumer, err := orchestrator.NewConsumer(consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream consumer")
	}
	defer consumer.Close()

	o := orchestrator.NewOrchestrator(engine, sessionApp, strat, clockwork.NewRealClock()).
		WithConsumer(consumer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := o.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("orchestrator failed")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
