package pokeapi_client

import (
	"github.com/pokedraftleague/draftd/go/clients"
)

type PokeAPIClient struct {
	*clients.BaseClient
}

func NewPokeAPIClient() *PokeAPIClient {
	client := &PokeAPIClient{
		BaseClient: clients.NewBaseClient(BaseURL),
	}

	client.SetHeader(JsonHeader, JsonContentType)

	return client
}
