package handler

import (
	"errors"

	"go-inventory-pos/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler is the only place where errors become HTTP responses.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr, status := toAppError(err)

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("kind", string(appErr.Kind)),
				zap.Error(err),
			)
		}

		body := fiber.Map{
			"message": appErr.Message,
			"kind":    appErr.Kind,
		}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		for k, v := range appErr.Details {
			body[k] = v
		}
		return c.Status(status).JSON(body)
	}
}

// toAppError classifies err and picks the response status. Errors raised by fiber itself keep
// their own status code, e.g. 405 or 426.
func toAppError(err error) (*apperror.Error, int) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr, appErr.Kind.StatusCode()
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch {
		case fe.Code == fiber.StatusNotFound:
			return apperror.NotFound(fe.Message), fe.Code
		case fe.Code == fiber.StatusUnauthorized:
			return apperror.Unauthorized(fe.Message), fe.Code
		case fe.Code == fiber.StatusTooManyRequests:
			return apperror.RateLimited(fe.Message, nil), fe.Code
		case fe.Code >= 400 && fe.Code < 500:
			return apperror.Validation(fe.Message, nil), fe.Code
		default:
			return apperror.Wrap(apperror.KindInternal, fe.Message, err), fe.Code
		}
	}
	return apperror.Wrap(apperror.KindInternal, "Internal Server Error", err), fiber.StatusInternalServerError
}

func invalidJSON(err error) error {
	return apperror.Wrap(apperror.KindValidation, "Invalid JSON", err)
}
