package serverutils

import (
	"errors"

	"marketplace-assistant-be/internal/constant"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns handler errors into JSON envelopes.
// Anything that is not a validation or fiber error is answered with the
// generic failure message so internals never reach the client.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(Response{
				Success: false,
				Code:    fiber.StatusBadRequest,
				Message: verr.Error(),
				Data:    verr.Fields,
			})
		}

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return ctx.Status(ferr.Code).JSON(ErrorResponse(ferr.Code, ferr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(fiber.StatusInternalServerError, constant.GenericFailureMessage))
	}
}
