package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"seepage/internal/http/middleware"
	"seepage/internal/service"
)

// errorPayload is the body of every non-validation error response.
type errorPayload struct {
	RequestID     string        `json:"request_id"`
	Error         errorEnvelope `json:"error"`
	FailedBlobIDs []string      `json:"failedBlobIds,omitempty"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// validationPayload is the body of 422 responses. Location names the first
// offending field.
type validationPayload struct {
	Code     int    `json:"code"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

// writeError sends an errorPayload. message must be safe to show clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.RequestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

func writeValidation(c *fiber.Ctx, verr *service.ValidationError) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(validationPayload{
		Code:     fiber.StatusUnprocessableEntity,
		Reason:   "ValidationError",
		Message:  verr.Message,
		Location: verr.Field,
	})
}

// writeServiceError maps a service error to its status code. notFound is the
// message used for ErrNotFound.
func writeServiceError(c *fiber.Ctx, err error, notFound string) error {
	var (
		verr    *service.ValidationError
		cleanup *service.BlobCleanupError
	)
	switch {
	case errors.As(err, &verr):
		return writeValidation(c, verr)
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", notFound)
	case errors.Is(err, service.ErrUnauthorized):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	case errors.As(err, &cleanup):
		return c.Status(fiber.StatusInternalServerError).JSON(errorPayload{
			RequestID: middleware.RequestIDFromCtx(c),
			Error: errorEnvelope{
				Code:    "BLOB_CLEANUP_FAILED",
				Message: "some files could not be deleted",
			},
			FailedBlobIDs: cleanup.Failed,
		})
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// statusErrors holds the code and message sent for fiber errors that reach
// the global handler. Anything else becomes INTERNAL_ERROR.
var statusErrors = map[int]errorEnvelope{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusUnauthorized:          {"UNAUTHORIZED", "unauthorized"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "request body too large"},
	fiber.StatusTooManyRequests:       {"TOO_MANY_REQUESTS", "too many requests"},
}

// ErrorHandler is the app-wide fiber error handler. Internal error text is
// never sent to clients.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		env, ok := statusErrors[status]
		if !ok {
			env = errorEnvelope{"INTERNAL_ERROR", "internal server error"}
		}
		return writeError(c, status, env.Code, env.Message)
	}
}
