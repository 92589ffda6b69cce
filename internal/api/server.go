// Package api exposes the task and auth operations over HTTP.
package api

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Config wires the HTTP layer to its collaborators.
type Config struct {
	Tasks  TaskUseCase
	Auth   AuthUseCase
	Tokens TokenValidator
	Log    *zap.Logger
	// Ping reports storage health for /health. Optional.
	Ping func(ctx context.Context) error
	// Now defaults to time.Now.
	Now func() time.Time
}

// New builds the fiber application with all routes registered.
func New(cfg Config) *fiber.App {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Log.Named("http")

	app := fiber.New(fiber.Config{
		AppName:               "taskmanager",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(RequestIDMiddleware())
	app.Use(LoggerMiddleware(log))
	app.Use(cors.New())

	app.Get("/health", healthHandler(cfg.Ping))

	validate := validator.New()
	authHandler := NewAuthHandler(cfg.Auth, validate, log)
	taskHandler := NewTaskHandler(cfg.Tasks, validate, log, cfg.Now)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	tasks := app.Group("/api/tasks", AuthMiddleware(cfg.Tokens))
	tasks.Get("/", taskHandler.List)
	tasks.Post("/", taskHandler.Create)
	tasks.Get("/:id", taskHandler.Get)
	tasks.Put("/:id", taskHandler.Update)
	tasks.Delete("/:id", taskHandler.Delete)

	return app
}

func healthHandler(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			if err := ping(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
