package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"seepage/internal/auth"
	"seepage/internal/model"
)

func echoRequestIDApp() *fiber.App {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/content", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFromCtx(c))
	})
	return app
}

func TestRequestID(t *testing.T) {
	app := echoRequestIDApp()

	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"absent", "", false},
		{"kept", "req-7f3a", true},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"control chars", "bad\tid", false},
		{"space", "two words", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/content", nil)
			if tc.incoming != "" {
				req.Header.Set(RequestIDHeader, tc.incoming)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)

			got := resp.Header.Get(RequestIDHeader)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, got, string(body), "locals and header must agree")
			if tc.keep {
				assert.Equal(t, tc.incoming, got)
			} else {
				assert.NotEqual(t, tc.incoming, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestRequestIDFromCtx_Unset(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("[" + RequestIDFromCtx(c) + "]")
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", string(body))
}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogger(t *testing.T) {
	app := fiber.New()
	var buf bytes.Buffer
	app.Use(RequestID())
	app.Use(LoggerWithWriter(&buf, time.UTC))
	app.Post("/content", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("repository down")
	})

	t.Run("success at info", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest("POST", "/content", nil)
		req.Header.Set(RequestIDHeader, "rid-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		line := logLine(t, &buf)
		assert.Equal(t, "info", line["level"])
		assert.Equal(t, "request", line["message"])
		assert.Equal(t, "rid-1", line["request_id"])
		assert.Equal(t, "POST", line["method"])
		assert.Equal(t, "/content", line["path"])
		assert.Equal(t, float64(fiber.StatusCreated), line["status"])
		assert.Contains(t, line, "latency")
		assert.NotContains(t, line, "trace_id")
	})

	t.Run("plain error at error level", func(t *testing.T) {
		buf.Reset()
		_, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
		require.NoError(t, err)

		line := logLine(t, &buf)
		assert.Equal(t, "error", line["level"])
		assert.Equal(t, float64(fiber.StatusInternalServerError), line["status"])
		assert.Equal(t, "repository down", line["error"])
	})
}

func TestLogger_LevelsAndTrace(t *testing.T) {
	var buf bytes.Buffer
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		ctx, span := tp.Tracer("test").Start(c.UserContext(), "req")
		defer span.End()
		c.SetUserContext(ctx)
		return c.Next()
	})
	app.Use(LoggerWithWriter(&buf, time.UTC))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "nope")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	line := logLine(t, &buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, float64(fiber.StatusNotFound), line["status"])
	assert.NotEmpty(t, line["trace_id"])
	assert.Equal(t, "http", line["component"])
}

func TestLogger_EditorFromToken(t *testing.T) {
	issuer, err := auth.NewTokenIssuer("log-secret", time.Hour)
	require.NoError(t, err)
	token, err := issuer.Issue(model.EditorDTO{ID: "editor-42", Email: "ed@example.com"})
	require.NoError(t, err)

	var buf bytes.Buffer
	app := fiber.New()
	app.Use(LoggerWithWriter(&buf, time.UTC))
	app.Get("/content", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Delete("/protected/content/:id", Bearer(issuer), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("DELETE", "/protected/content/c1", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	_, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "editor-42", logLine(t, &buf)["editor_id"])

	buf.Reset()
	_, err = app.Test(httptest.NewRequest("GET", "/content", nil))
	require.NoError(t, err)
	assert.NotContains(t, logLine(t, &buf), "editor_id")
}
