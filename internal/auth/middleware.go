package auth

import (
	"slices"
	"strings"

	"store-backend/internal/audit"
	"store-backend/internal/config"
	"store-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// JWTMiddleware: token'ı doğrular, Principal'ı locals'a, audit actor'ını
// request context'ine koyar. Handler'lar actor'ı c.UserContext()'ten okur.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		p, err := ParseToken(cfg.JWTSecret, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(principalKey, p)
		c.SetUserContext(audit.WithActor(c.UserContext(), p.Actor()))
		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing Authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
	}
	return token, nil
}

// PrincipalFrom: JWTMiddleware'den geçmemiş isteklerde nil
func PrincipalFrom(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(principalKey).(*Principal)
	return p
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		if p == nil {
			return fiber.NewError(fiber.StatusForbidden, "Role information missing")
		}
		if !slices.Contains(allowedRoles, p.Role) {
			return fiber.NewError(fiber.StatusForbidden, "You are not allowed to perform this action")
		}
		return c.Next()
	}
}
