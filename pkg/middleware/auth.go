package middleware

import (
	"strings"

	"finscan/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OwnerKey is the fiber.Ctx locals key holding the authenticated owner id.
const OwnerKey = "ownerID"

func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			// Browsers cannot set headers on websocket upgrades; allow the
			// token as a query parameter there.
			token = c.Query("token")
		}
		if token == "" {
			logger.Warn("missing authorization token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			logger.Warn("invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(OwnerKey, claims.OwnerID)
		return c.Next()
	}
}
