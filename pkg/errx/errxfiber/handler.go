// Package errxfiber renders errors as JSON responses for Fiber apps.
package errxfiber

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/logx"
)

// ErrorHandler returns a fiber.ErrorHandler that writes *errx.Error values
// with their own status. debug adds the wrapped cause to the body.
func ErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.GetRespHeader(fiber.HeaderXRequestID, c.Get(fiber.HeaderXRequestID))

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error":      fe.Message,
				"code":       "FIBER_ERROR",
				"status":     fe.Code,
				"request_id": requestID,
			})
		}

		var e *errx.Error
		if !errors.As(err, &e) {
			logRequestError(c, requestID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":      "Internal Server Error",
				"type":       string(errx.TypeInternal),
				"code":       "INTERNAL_ERROR",
				"message":    "An unexpected error occurred",
				"request_id": requestID,
			})
		}

		if e.HTTPStatus >= fiber.StatusInternalServerError {
			logRequestError(c, requestID, err)
		}

		response := fiber.Map{
			"error":      e.Message,
			"code":       e.Code,
			"type":       string(e.Type),
			"status":     e.HTTPStatus,
			"request_id": requestID,
		}
		if len(e.Details) > 0 {
			response["details"] = e.Details
		}
		if debug && e.Err != nil {
			response["underlying_error"] = e.Err.Error()
		}
		return c.Status(e.HTTPStatus).JSON(response)
	}
}

func logRequestError(c *fiber.Ctx, requestID string, err error) {
	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": requestID,
		"user_agent": c.Get(fiber.HeaderUserAgent),
	}).Errorf("Request error: %v", err)
}
