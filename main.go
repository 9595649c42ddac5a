package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/logger"
	"taskboard/internal/middleware"
	"taskboard/internal/repositories"
	"taskboard/internal/services"
	"taskboard/pkg/rabbitmq"
	"taskboard/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// --- Store ---
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := repositories.Open(ctx, cfg.DatabaseDSN, cfg.DatabaseName)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	log.WithField("backend", store.Backend).Info("store ready")

	// --- Task events (optional) ---
	var events services.TaskEventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, task events disabled")
		} else {
			defer mqClient.Close()
			events = mqClient
		}
	}

	app := NewApp(cfg, store, events)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("Starting server on %s", cfg.ListenAddr())
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("Error during Fiber shutdown")
	}
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := store.Close(closeCtx); err != nil {
		log.WithError(err).Error("Error closing store")
	}
	log.Info("Server gracefully stopped")
}

// NewApp wires services, handlers and middleware into a Fiber app. events
// may be nil.
func NewApp(cfg config.Config, store *repositories.Store, events services.TaskEventPublisher) *fiber.App {
	// --- Services ---
	authService := services.NewAuthService(store.Users, cfg.JWTSecret)
	userService := services.NewUserService(store.Users)
	taskService := services.NewTaskService(store.Tasks, events)

	// --- Handlers ---
	validator := handlers.NewValidator()
	authHandler := handlers.NewAuthHandler(authService, validator)
	profileHandler := handlers.NewProfileHandler(userService, validator)
	taskHandler := handlers.NewTaskHandler(taskService, validator)
	healthHandler := handlers.NewHealthHandler()

	app := fiber.New(fiber.Config{
		AppName:      "taskboard",
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Output: log.StandardLogger().Writer(),
	}))
	app.Use(middleware.Metrics())

	origins := strings.Join(cfg.CORSOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "" && origins != "*",
	}))

	// --- API Routes ---
	api := app.Group("/api")
	auth := middleware.AuthRequired(authService)

	healthHandler.RegisterRoutes(api)
	authHandler.RegisterRoutes(api)
	profileHandler.RegisterRoutes(api, auth)
	taskHandler.RegisterRoutes(api, auth)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// --- Client UI ---
	// Non-API paths the UI does not know fall back to index.html.
	app.Use(filesystem.New(filesystem.Config{
		Root:         web.FS(),
		Index:        "index.html",
		NotFoundFile: "index.html",
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api")
		},
	}))

	return app
}
