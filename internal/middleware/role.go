package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kazilink/backend/internal/models"
)

// RequireRoles rejects callers whose role is not in the allowed set.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		role := CallerRole(c)
		if !allowedSet[role] {
			return fiber.NewError(fiber.StatusForbidden,
				"User role "+string(role)+" is not authorized to access this route")
		}
		return c.Next()
	}
}
