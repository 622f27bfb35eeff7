package pokeapi_client

const (
	BaseURL = "https://pokeapi.co/api/v2/"

	JsonHeader      = "accept"
	JsonContentType = "application/json"
)
