package handler

import (
	"go-inventory-pos/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Me echoes the identity resolved from the bearer token.
// GET /api/v1/auth/me
func Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user_id": middleware.UserID(c)})
}
