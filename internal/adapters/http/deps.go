package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/workradius/internal/adapters/postgres"
	"github.com/samirrijal/workradius/internal/adapters/valkey"
	"github.com/samirrijal/workradius/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Jobs        *usecases.JobService
	Suggestions *usecases.SuggestionService
	MaxRadiusKm float64 // upper bound on radius_km; 0 means unbounded
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}
