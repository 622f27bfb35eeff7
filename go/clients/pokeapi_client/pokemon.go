package pokeapi_client

import (
	"context"
	"encoding/json"
	"fmt"
)

// PokeAPI response structures
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type GenerationResponse struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	PokemonSpecies []NamedResource `json:"pokemon_species"`
}

type PokemonType struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

type PokemonStat struct {
	BaseStat int           `json:"base_stat"`
	Stat     NamedResource `json:"stat"`
}

type PokemonResponse struct {
	ID    int           `json:"id"`
	Name  string        `json:"name"`
	Types []PokemonType `json:"types"`
	Stats []PokemonStat `json:"stats"`
}

// GetGeneration retrieves a generation and its species list
func (c *PokeAPIClient) GetGeneration(ctx context.Context, generation int) (*GenerationResponse, error) {
	endpoint := fmt.Sprintf("generation/%d", generation)

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get generation %d: %w", generation, err)
	}

	var response GenerationResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation response: %w", err)
	}

	return &response, nil
}

// GetPokemon retrieves a single pokemon by name, including types and base stats
func (c *PokeAPIClient) GetPokemon(ctx context.Context, name string) (*PokemonResponse, error) {
	endpoint := fmt.Sprintf("pokemon/%s", name)

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get pokemon %s: %w", name, err)
	}

	var response PokemonResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pokemon response: %w", err)
	}

	return &response, nil
}

// BaseStatTotal sums the six base stats
func (p *PokemonResponse) BaseStatTotal() int {
	total := 0
	for _, s := range p.Stats {
		total += s.BaseStat
	}
	return total
}

// TypeNames returns the primary type and, when present, the secondary type
func (p *PokemonResponse) TypeNames() (string, *string) {
	var primary string
	var secondary *string
	for _, t := range p.Types {
		switch t.Slot {
		case 1:
			primary = t.Type.Name
		case 2:
			name := t.Type.Name
			secondary = &name
		}
	}
	return primary, secondary
}
