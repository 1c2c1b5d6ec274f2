// Package main provides the Flowrift API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowrift/flowrift/pkg/breaker"
	"github.com/flowrift/flowrift/pkg/eventbus"
	"github.com/flowrift/flowrift/pkg/persistence"
	"github.com/flowrift/flowrift/pkg/versioning"
	"github.com/flowrift/flowrift/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate
	tracer      trace.Tracer
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	versioningService := versioning.NewService(a.persistence, a.logger, a.eventBus)
	if a.tracer != nil {
		versioningService.WithTracer(a.tracer)
	}

	breakerManager := breaker.NewManager(breaker.DefaultConfig(), a.logger)

	handlers := web.NewAPIHandlers(versioningService, breakerManager, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowrift API")
	})

	w := app.Group("/workflows")
	w.Post("/:id/publish", handlers.PublishWorkflow)
	w.Post("/:id/rollback", handlers.RollbackWorkflow)
	w.Post("/:id/restore-draft", handlers.RestoreDraft)
	w.Patch("/:id/status", handlers.UpdateLiveStatus)
	w.Get("/:id/versions", handlers.GetVersionHistory)
	w.Get("/:id/unpublished-changes", handlers.GetUnpublishedChanges)
	w.Get("/:id/graph", handlers.GetExecutableGraph)

	b := app.Group("/breaker")
	b.Get("/", handlers.GetBreakerStatus)
	b.Post("/reset", handlers.ResetBreaker)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Starting API server", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
