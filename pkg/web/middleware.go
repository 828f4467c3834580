package web

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/runcept/runcept/pkg/auth"
	"github.com/runcept/runcept/pkg/models"
	"github.com/runcept/runcept/pkg/ratelimit"
)

type contextKey struct{ name string }

var claimsKey = contextKey{"claims"}

// ClaimsFromContext returns the verified claims the auth middleware stored
// for this request, or nil on unauthenticated routes.
func ClaimsFromContext(c fiber.Ctx) *models.Claims {
	claims, _ := c.Locals(claimsKey).(*models.Claims)

	return claims
}

// NewAuthMiddleware verifies the bearer token on every request and stores
// the claims for the handlers. Requests without a valid token never reach
// a handler.
func NewAuthMiddleware(verifier *auth.Verifier, logger *slog.Logger) fiber.Handler {
	logger = logger.With("module", "auth")

	return func(c fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return unauthenticated(c, "Missing bearer token")
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.WarnContext(c.Context(), "Rejected execution token", "path", c.Path(), "error", err)

			return unauthenticated(c, "Invalid or expired execution token")
		}

		c.Locals(claimsKey, claims)

		return c.Next()
	}
}

// NewRateLimitMiddleware throttles per execution ID, falling back to the
// client IP when the request carries no claims yet. Denials carry a
// Retry-After so SDK backoff is deterministic.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, logger *slog.Logger) fiber.Handler {
	logger = logger.With("module", "ratelimit")

	return func(c fiber.Ctx) error {
		key := c.IP()
		if claims := ClaimsFromContext(c); claims != nil {
			key = claims.ExecutionID
		}

		result, err := limiter.Allow(c.Context(), key)
		if err != nil {
			logger.ErrorContext(c.Context(), "Rate limiter check failed", "error", err)

			return failure(c, fiber.StatusServiceUnavailable, CodeUnavailable, "Rate limiter is unavailable")
		}

		if !result.Allowed {
			rateLimitRejections.WithLabelValues(c.Route().Path).Inc()

			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))

			return failure(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded, retry later")
		}

		return c.Next()
	}
}
