package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"storefront/internal/services"
)

// statusOf maps a service error to its HTTP status and kind name.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest, "ValidationError"
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusBadRequest, "ConflictError"
	case errors.Is(err, services.ErrAuth):
		return fiber.StatusUnauthorized, "AuthError"
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, "ForbiddenError"
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "NotFoundError"
	default:
		return fiber.StatusInternalServerError, "InternalError"
	}
}

// respondError writes err as a JSON error body. Unexpected errors are logged
// and their details withheld from the client.
func respondError(c *fiber.Ctx, err error) error {
	status, kind := statusOf(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
		message = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   kind,
	})
}

func invalidBody(c *fiber.Ctx, err error) error {
	log.WithError(err).WithField("path", c.Path()).Debug("error parsing request body")
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   "ValidationError",
	})
}

// ErrorHandler renders errors that escape handlers, such as unknown routes,
// in the same shape as rule errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := "InternalError"
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			kind = "NotFoundError"
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			kind = "ValidationError"
		case fiber.StatusMethodNotAllowed:
			kind = "MethodNotAllowed"
		}
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"message": fiberErr.Message,
			"error":   kind,
		})
	}
	return respondError(c, err)
}
