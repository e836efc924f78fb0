package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"

	"github.com/mytransittn/transitfare/internal/adapters/postgres"
	"github.com/mytransittn/transitfare/internal/adapters/valkey"
	"github.com/mytransittn/transitfare/internal/core/ports"
	"github.com/mytransittn/transitfare/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Regions  ports.RegionRepository
	Stations ports.StationRepository
	Lines    ports.LineRepository

	Routing     *usecases.RoutingService
	Distances   *usecases.DistanceService
	Fares       *usecases.FareService
	FareConfigs *usecases.FareConfigService
	Journeys    *usecases.JourneyService
	Payments    *usecases.PaymentService

	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
	Validate *validator.Validate
}
