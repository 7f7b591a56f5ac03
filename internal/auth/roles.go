package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireIdentity ensures the caller is authenticated and carries at least one known role.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		for _, role := range identity.Roles {
			if role.IsValid() {
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusForbidden, "no recognised role")
	}
}
