package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on successful GET requests
		if c.Method() != fiber.MethodGet || c.Response().StatusCode() >= 400 {
			return err
		}

		// Don't override if already set
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		if ttl := cacheControlFor(c.Path()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready":
		return "no-cache" // Probes must see live state

	case path == "/metrics":
		return "no-cache"

	case strings.HasPrefix(path, "/docs"):
		return "public, max-age=3600"

	case path == "/v1/jobs/nearby":
		return "private, max-age=30" // Seeker location is personal

	case path == "/v1/jobs":
		return "public, max-age=30" // New postings should show up quickly

	case strings.HasPrefix(path, "/v1/jobs/"):
		return "public, max-age=300" // Single posting

	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=60"
	}
	return ""
}
