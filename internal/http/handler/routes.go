package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"seepage/internal/http/middleware"
	"seepage/internal/service"
)

// Deps are the dependencies of the HTTP routes.
type Deps struct {
	DB       *sql.DB
	Blobs    BlobReadiness
	Editors  service.EditorService
	Contents service.ContentService
	Tokens   middleware.TokenVerifier
	// LoginLimiter throttles /auth/login when set.
	LoginLimiter *middleware.IPLimiter
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB, d.Blobs))
	app.Get("/healthz", Liveness())

	app.Post("/register", RegisterEditor(d.Editors))

	authGroup := app.Group("/auth")
	login := []fiber.Handler{Login(d.Editors)}
	if d.LoginLimiter != nil {
		login = append([]fiber.Handler{d.LoginLimiter.Handler()}, login...)
	}
	authGroup.Post("/login", login...)
	authGroup.Post("/refresh", middleware.Bearer(d.Tokens), RefreshToken(d.Editors))

	app.Get("/content", ListContent(d.Contents))
	app.Get("/content/files/:key", GetFile(d.Contents))
	app.Get("/content/:id", GetContent(d.Contents))

	protected := app.Group("/protected", middleware.Bearer(d.Tokens))
	protected.Post("/content", CreateContent(d.Contents))
	protected.Patch("/content/:id", PatchContent(d.Contents))
	protected.Patch("/files/:id", PatchFiles(d.Contents))
	protected.Delete("/content/:id", DeleteContent(d.Contents))
}
