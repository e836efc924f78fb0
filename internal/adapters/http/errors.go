package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
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
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// domainError maps sentinel errors from the core onto HTTP responses. Any
// unrecognized error is a 500.
func domainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrRegionNotFound),
		errors.Is(err, domain.ErrStationNotFound),
		errors.Is(err, domain.ErrLineNotFound),
		errors.Is(err, domain.ErrJourneyNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrFareConfigNotFound):
		return errNotFound(c, err.Error())

	case errors.Is(err, domain.ErrSameStation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNoRouteFound):
		return errBadRequest(c, err.Error())

	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyPaid),
		errors.Is(err, domain.ErrNotRefundable):
		return errConflict(c, err.Error())

	case errors.Is(err, domain.ErrInsufficientBalance):
		return newError(c, 402, "insufficient_balance", err.Error())

	case errors.Is(err, domain.ErrFareNotComputed),
		errors.Is(err, domain.ErrNoActiveFareConfig):
		return newError(c, 412, "precondition_failed", err.Error())

	default:
		return errInternal(c, err.Error())
	}
}
