package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/mytransittn/transitfare/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 with a 15s per-request timeout
	v1 := app.Group("/v1")

	// Network reads
	v1.Get("/regions", timeout.NewWithContext(ListRegionsHandler(deps), 15*time.Second))
	v1.Get("/stations", timeout.NewWithContext(ListStationsHandler(deps), 15*time.Second))
	v1.Get("/stations/:id", timeout.NewWithContext(GetStationHandler(deps), 15*time.Second))
	v1.Get("/lines", timeout.NewWithContext(ListLinesHandler(deps), 15*time.Second))
	v1.Get("/lines/:id", timeout.NewWithContext(GetLineHandler(deps), 15*time.Second))

	// Route planning
	v1.Get("/routes/topology", timeout.NewWithContext(TopologyRouteHandler(deps), 15*time.Second))
	v1.Get("/routes/plan", timeout.NewWithContext(PlanRouteHandler(deps), 15*time.Second))

	// Journeys
	v1.Post("/journeys", timeout.NewWithContext(CreateJourneyHandler(deps), 15*time.Second))
	v1.Get("/journeys", timeout.NewWithContext(ListJourneysHandler(deps), 15*time.Second))
	v1.Get("/journeys/:id", timeout.NewWithContext(GetJourneyHandler(deps), 15*time.Second))
	v1.Post("/journeys/:id/fare", timeout.NewWithContext(ComputeJourneyFareHandler(deps), 15*time.Second))
	v1.Post("/journeys/:id/start", timeout.NewWithContext(StartJourneyHandler(deps), 15*time.Second))
	v1.Post("/journeys/:id/complete", timeout.NewWithContext(CompleteJourneyHandler(deps), 15*time.Second))
	v1.Post("/journeys/:id/cancel", timeout.NewWithContext(CancelJourneyHandler(deps), 15*time.Second))

	// Payments
	v1.Post("/payments/journey/:id", timeout.NewWithContext(PayForJourneyHandler(deps), 15*time.Second))
	v1.Post("/payments/topup", timeout.NewWithContext(TopUpHandler(deps), 15*time.Second))
	v1.Post("/payments/:id/refund", timeout.NewWithContext(RefundPaymentHandler(deps), 15*time.Second))
	v1.Get("/payments", timeout.NewWithContext(ListPaymentsHandler(deps), 15*time.Second))
	v1.Get("/payments/:id", timeout.NewWithContext(GetPaymentHandler(deps), 15*time.Second))

	// Fare configuration
	v1.Get("/fares/active", timeout.NewWithContext(ActiveFareConfigHandler(deps), 15*time.Second))
	v1.Get("/fares", timeout.NewWithContext(ListFareConfigsHandler(deps), 15*time.Second))
	v1.Post("/fares", timeout.NewWithContext(CreateFareConfigHandler(deps), 15*time.Second))
	v1.Post("/fares/:id/activate", timeout.NewWithContext(ActivateFareConfigHandler(deps), 15*time.Second))

	// Operator surface
	v1.Post("/network/rebuild", timeout.NewWithContext(RebuildNetworkHandler(deps), 60*time.Second))
	v1.Delete("/network/distance-cache", timeout.NewWithContext(ClearDistanceCacheHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
