package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"seepage/internal/auth"
)

// ClaimsLocalKey is the locals key holding the verified *auth.Claims.
const ClaimsLocalKey = "claims"

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Bearer rejects requests without a valid "Authorization: Bearer <token>"
// header with 401. Verified claims are stored under ClaimsLocalKey.
func Bearer(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		claims, err := v.Verify(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(ClaimsLocalKey, claims)
		return c.Next()
	}
}

// BearerToken returns the raw token of the request's Authorization header.
func BearerToken(c *fiber.Ctx) string {
	token, _ := bearerToken(c.Get(fiber.HeaderAuthorization))
	return token
}

// ClaimsFromCtx returns the claims stored by Bearer.
func ClaimsFromCtx(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(ClaimsLocalKey).(*auth.Claims)
	return claims
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
