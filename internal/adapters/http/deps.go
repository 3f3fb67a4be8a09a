package http

import (
	natsadapter "github.com/samirrijal/srimap/internal/adapters/nats"
	"github.com/samirrijal/srimap/internal/adapters/postgres"
	"github.com/samirrijal/srimap/internal/adapters/valkey"
	"github.com/samirrijal/srimap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// Events, DB and Cache are optional.
type Dependencies struct {
	Datasets *usecases.DatasetService
	Nearby   *usecases.NearbyService
	Chat     *usecases.ChatService
	Events   *natsadapter.Publisher
	DB       *postgres.DB
	Cache    *valkey.Cache
	// WebDir, when set, is served at / (the map front end).
	WebDir string
	// OpenAPIPath overrides the location of the served OpenAPI document.
	OpenAPIPath string
}
