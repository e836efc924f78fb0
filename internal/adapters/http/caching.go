package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on
// endpoint. Adds sensible defaults if not already set by the handler.
// Anything touching journeys, payments, or balances is per-rider state and
// must never be shared-cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case strings.HasPrefix(path, "/v1/journeys"),
			strings.HasPrefix(path, "/v1/payments"),
			strings.HasPrefix(path, "/v1/riders"):
			ttl = "private, no-store" // Rider state

		case strings.HasPrefix(path, "/v1/routes"):
			ttl = "public, max-age=300" // Route plans follow topology

		case strings.HasPrefix(path, "/v1/fares/active"):
			ttl = "public, max-age=60" // Active config can swap any minute

		case strings.HasPrefix(path, "/v1/regions"),
			strings.HasPrefix(path, "/v1/stations"),
			strings.HasPrefix(path, "/v1/lines"):
			ttl = "public, max-age=3600" // Topology data is stable

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300" // 5 min default for API endpoints
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
