package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AdminOnly lets through authenticated administrators only. It must run
// after AuthRequired.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "not authorized as an admin",
				"error":   "ForbiddenError",
			})
		}
		return c.Next()
	}
}

// ValidID rejects requests whose route parameter is not a well formed id.
func ValidID(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params(param)
		if _, err := uuid.Parse(id); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": fmt.Sprintf("Invalid Id of %s", id),
				"error":   "ValidationError",
			})
		}
		return c.Next()
	}
}
