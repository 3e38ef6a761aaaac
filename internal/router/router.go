package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/soltixdb/fuzzcast/internal/config"
	"github.com/soltixdb/fuzzcast/internal/handlers"
	"github.com/soltixdb/fuzzcast/internal/logging"
	"github.com/soltixdb/fuzzcast/internal/metrics"
	"github.com/soltixdb/fuzzcast/internal/middleware"
	"github.com/soltixdb/fuzzcast/internal/services"
)

// Services bundles what the routes need
type Services struct {
	Training *services.TrainingService
	Forecast *services.ForecastService
	Metrics  *metrics.Registry // optional
}

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, svc Services, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, svc.Training, svc.Forecast)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Health check and metrics (no auth required)
	app.Get("/health", h.Health)
	if cfg.Metrics.Enabled && svc.Metrics != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(svc.Metrics.Handler()))
	}

	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled))

	// Model lifecycle
	v1.Post("/models", h.CreateModel)
	v1.Get("/models", h.ListModels)
	v1.Get("/models/:id", h.GetModel)
	v1.Delete("/models/:id", h.CancelModel)
	v1.Get("/models/:id/rules", h.GetRules)

	// Forecasting
	v1.Post("/models/:id/forecast", h.Forecast)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, svc Services, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "fuzzcast",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, svc, cfg)

	return app
}
