package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kazilink/backend/internal/utils"
)

// JWTAuth reads the session token from the "token" cookie or an
// Authorization: Bearer header and stores the verified claims in locals.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies("token")
		if tokenStr == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				tokenStr = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if tokenStr == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized to access this route")
		}

		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized to access this route")
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}
