package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pokedraftleague/draftd/go/clients/pokeapi_client"
	"github.com/pokedraftleague/draftd/go/internal/dbconfig"
)

// Seeds a season's draft pool from PokeAPI. Safe to re-run: entries
// already present (by season + name) are skipped, so a drafted entry is
// never reset to available.
func main() {
	var (
		seasonFlag     = flag.String("season", "", "season UUID to seed the pool for")
		generationFlag = flag.Int("generation", 1, "pokemon generation to import")
	)
	flag.Parse()

	seasonID, err := uuid.Parse(*seasonFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -season: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// 1) Fetch the generation's species list
	api := pokeapi_client.NewPokeAPIClient()
	gen, err := api.GetGeneration(ctx, *generationFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch generation: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generation %s: %d species\n", gen.Name, len(gen.PokemonSpecies))

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Fetch each pokemon and upsert
	var (
		total    = len(gen.PokemonSpecies)
		inserted int
		skipped  int
		errs     int
	)

	for _, species := range gen.PokemonSpecies {
		p, err := api.GetPokemon(ctx, species.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error fetching %s: %v\n", species.Name, err)
			errs++
			continue
		}
		type1, type2 := p.TypeNames()

		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO draft_pool (
              id, season_id, name, point_cost, status,
              generation, type1, type2, tera_banned
            ) VALUES (
              $1,$2,$3,$4,'available',$5,$6,$7,false
            )
            ON CONFLICT (season_id, lower(name)) DO NOTHING
        `,
			uuid.New(), seasonID, p.Name, pointCost(p.BaseStatTotal()),
			*generationFlag, type1, type2,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting %s: %v\n", p.Name, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}

		// PokeAPI fair-use: stay well under rate limits
		time.Sleep(100 * time.Millisecond)
	}

	// 4) Print summary
	fmt.Printf(
		"Pool seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}

// pointCost maps a base stat total onto the league's draft point scale.
// 600+ legendaries cost 20, a 300 BST early-game bug costs 5.
func pointCost(bst int) int {
	cost := (bst - 200) / 20
	if cost < 1 {
		cost = 1
	}
	if cost > 20 {
		cost = 20
	}
	return cost
}
