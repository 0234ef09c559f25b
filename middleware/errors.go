// middleware/errors.go
package middleware

import (
	"errors"

	"proofofcrab/identity"
	"proofofcrab/issuance"
	"proofofcrab/models"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps the service error taxonomy to an HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	var apiErr *issuance.APIError
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, identity.ErrInvalidFrameMessage):
		return fiber.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, issuance.ErrAuthorization), errors.As(err, &apiErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the app-wide fallback for errors returned by handlers.
// Internal detail is hidden in production.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)
		message := err.Error()

		if production && code >= 500 {
			message = "An error occurred. Please try again later."
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
