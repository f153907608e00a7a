package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/kazilink/backend/internal/models"
	"github.com/kazilink/backend/internal/utils"
)

// AttachJWTLocals flattens verified claims into userId / role locals so
// handlers don't deal with token types.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Locals("claims")
		if raw == nil {
			return fiber.ErrUnauthorized
		}

		claims, ok := raw.(*utils.Claims)
		if !ok {
			return fiber.ErrUnauthorized
		}

		uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		role := models.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
		if !role.Valid() {
			return fiber.ErrUnauthorized
		}

		c.Locals("userId", uid)
		c.Locals("role", role)
		return c.Next()
	}
}

// CallerID returns the authenticated user's id from locals.
func CallerID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("userId").(uuid.UUID)
	return id
}

// CallerRole returns the authenticated user's role from locals.
func CallerRole(c *fiber.Ctx) models.Role {
	role, _ := c.Locals("role").(models.Role)
	return role
}
