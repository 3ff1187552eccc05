package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/spark-support/internal/domain"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// DeviceHeader lets unauthenticated clients name themselves when tokens are
// not required.
const DeviceHeader = "X-Device-ID"

// Principal represents the calling device.
type Principal struct {
	SubjectType   domain.SubjectType
	DeviceID      string
	Authenticated bool
}

// AuthMiddleware resolves the calling device from a bearer token or header.
type AuthMiddleware struct {
	tokens   *TokenManager
	required bool
}

// NewAuthMiddleware constructs middleware. With required set, requests
// without a valid bearer token are rejected.
func NewAuthMiddleware(tokens *TokenManager, required bool) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, required: required}
}

// Handle attaches a Principal to the request.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if m.required {
			return apperrors.NewUnauthorized("missing authorization header")
		}
		c.Locals(principalKey, anonymousPrincipal(c.Get(DeviceHeader)))
		return c.Next()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{
		SubjectType:   claims.Subject,
		DeviceID:      claims.DeviceID,
		Authenticated: true,
	})
	return c.Next()
}

func anonymousPrincipal(header string) *Principal {
	// header aliases the request buffer; the id outlives the request.
	device := strings.Clone(strings.TrimSpace(header))
	if device == "" {
		device = domain.AnonymousDevice
	}
	return &Principal{SubjectType: domain.SubjectTypeDevice, DeviceID: device}
}

// PrincipalFromContext retrieves the calling device.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// DeviceID returns the calling device id, or the anonymous id.
func DeviceID(c *fiber.Ctx) string {
	if p, ok := PrincipalFromContext(c); ok && p.DeviceID != "" {
		return p.DeviceID
	}
	return domain.AnonymousDevice
}
