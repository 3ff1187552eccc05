package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// RequireAuthenticated rejects callers that did not present a valid token,
// even when the middleware runs in optional mode.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.Authenticated {
			return apperrors.NewUnauthorized("device token required")
		}
		return c.Next()
	}
}
