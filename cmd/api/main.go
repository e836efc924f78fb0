package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mytransittn/transitfare/internal/adapters/http"
	natsadapter "github.com/mytransittn/transitfare/internal/adapters/nats"
	"github.com/mytransittn/transitfare/internal/adapters/openroute"
	"github.com/mytransittn/transitfare/internal/adapters/postgres"
	"github.com/mytransittn/transitfare/internal/adapters/valkey"
	"github.com/mytransittn/transitfare/internal/core/ports"
	"github.com/mytransittn/transitfare/internal/core/usecases"
	"github.com/mytransittn/transitfare/internal/pkg/config"
	"github.com/mytransittn/transitfare/internal/pkg/logging"
	"github.com/mytransittn/transitfare/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("transitfare-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, running without shared cache", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// External distance provider, optional
	var provider ports.DistanceProvider
	if cfg.Routing.ProviderURL != "" {
		provider = openroute.New(
			cfg.Routing.ProviderURL,
			cfg.Routing.ProviderAPIKey,
			time.Duration(cfg.Routing.ProviderTimeoutMS)*time.Millisecond,
		)
	}

	// Repos
	regionRepo := postgres.NewRegionRepo(db)
	stationRepo := postgres.NewStationRepo(db)
	lineRepo := postgres.NewLineRepo(db)
	configRepo := postgres.NewFareConfigRepo(db)
	journeyRepo := postgres.NewJourneyRepo(db)
	riderRepo := postgres.NewRiderRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)

	// Use cases
	distanceSvc := usecases.NewDistanceService(provider, cacheSvc)
	routingSvc := usecases.NewRoutingService(lineRepo, distanceSvc)
	fareSvc := usecases.NewFareService(configRepo, lineRepo, stationRepo, regionRepo, distanceSvc)
	fareConfigSvc := usecases.NewFareConfigService(configRepo, events)
	journeySvc := usecases.NewJourneyService(journeyRepo, stationRepo, lineRepo, fareSvc, events)
	paymentSvc := usecases.NewPaymentService(ledgerRepo, journeyRepo, riderRepo, events)

	// Build the routing snapshot before taking traffic. Readiness reports
	// the missing network if this fails, so startup proceeds.
	if err := routingSvc.Rebuild(ctx); err != nil {
		slog.Error("initial network build failed", "error", err)
	}

	deps := &http.Dependencies{
		Regions:     regionRepo,
		Stations:    stationRepo,
		Lines:       lineRepo,
		Routing:     routingSvc,
		Distances:   distanceSvc,
		Fares:       fareSvc,
		FareConfigs: fareConfigSvc,
		Journeys:    journeySvc,
		Payments:    paymentSvc,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
		Validate:    validator.New(),
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "TransitFare API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.mytransit.tn",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Rider-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
