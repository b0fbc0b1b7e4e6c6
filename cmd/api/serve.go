package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"seepage/docs"
	"seepage/internal/auth"
	"seepage/internal/config"
	handlers "seepage/internal/http/handler"
	"seepage/internal/http/middleware"
	appotel "seepage/internal/otel"
	"seepage/internal/repository/postgres"
	"seepage/internal/service"
	"seepage/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) error {
	shutdownTracing, err := appotel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(tctx)
	}()

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	// The blob store opens in the background; requests that need it wait.
	blobs := storage.Defer(ctx, func(ctx context.Context) (storage.BlobStore, error) {
		return storage.Open(ctx, cfg)
	})
	go logBlobReadiness(ctx, blobs, cfg.Blob.Driver, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register content metrics: %w", err)
	}

	contentRepo := postgres.NewContentPostgres(db)
	editorSvc := service.NewEditorService(postgres.NewEditorPostgres(db), tokens)
	contentSvc := service.NewContentService(contentRepo, blobs, log, metrics)

	limiter := middleware.NewIPLimiter(ctx, cfg.Auth.LoginRatePerSec, cfg.Auth.LoginRateBurst)
	limiter.OnDenied = func(ip string) {
		log.Warn().Str("event", "login_rate_limited").Str("ip", ip).Msg("")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.HTTP.BodyLimitMB << 20,
	})

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics"
	})))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.ClientOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:           db,
		Blobs:        blobs,
		Editors:      editorSvc,
		Contents:     contentSvc,
		Tokens:       tokens,
		LoginLimiter: limiter,
	})

	if cfg.Sweep.Interval > 0 {
		sweeper := service.NewOrphanSweeper(contentRepo, blobs, cfg.Sweep.Grace, log, metrics)
		go sweeper.Run(ctx, cfg.Sweep.Interval)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("event", "http_listen").Str("addr", ":"+cfg.HTTP.Port).Msg("")
		errCh <- app.Listen(":" + cfg.HTTP.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Str("event", "http_shutdown").Msg("")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func logBlobReadiness(ctx context.Context, blobs *storage.Deferred, driver string, log zerolog.Logger) {
	select {
	case <-ctx.Done():
		return
	case <-blobs.Ready():
	}
	if err := blobs.Err(); err != nil {
		log.Error().Err(err).Str("event", "blob_store_open").Str("status", "error").Str("driver", driver).Msg("")
		return
	}
	log.Info().Str("event", "blob_store_open").Str("status", "success").Str("driver", driver).Msg("")
}
