package middleware

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"seepage/internal/logger"
)

// Logger emits one "request" event per request. Server errors log at error
// level, client errors at warn. Latency is in milliseconds. Authenticated
// requests carry the editor_id of the token.
func Logger(log zerolog.Logger) fiber.Handler {
	log = logger.Component(log, "http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := StatusFromError(c, err)
		ev := log.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Error().Err(err)
		case status >= fiber.StatusBadRequest:
			ev = log.Warn()
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.HasTraceID() {
			ev = ev.Str("trace_id", sc.TraceID().String())
		}
		// Bearer runs inside Next, so claims are set by now on protected routes.
		if claims := ClaimsFromCtx(c); claims != nil {
			ev = ev.Str("editor_id", claims.User.ID)
		}
		ev.Str("request_id", RequestIDFromCtx(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Float64("latency", float64(time.Since(start).Microseconds())/1000).
			Msg("request")

		return err
	}
}

// LoggerWithWriter logs requests as JSON lines to w with timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logger.New(w, "info", "json", loc))
}

// StatusFromError returns the status the error handler will send for err,
// or the response status when err is nil.
func StatusFromError(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
