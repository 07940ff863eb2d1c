package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, unavailable, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnavailable returns a 503 error. Clients may retry.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// serviceError maps a use-case error to a response.
func serviceError(c *fiber.Ctx, err error) error {
	log := LoggerFromCtx(c.UserContext())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, "job not found")
	case errors.Is(err, domain.ErrInvalidJob):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrCandidateFetch):
		log.Warn("job store unavailable", "error", err)
		return errUnavailable(c, "job store unavailable, retry later")
	default:
		log.Error("request failed", "error", err)
		return errInternal(c, "internal error")
	}
}
