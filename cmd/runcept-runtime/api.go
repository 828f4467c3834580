// Package main provides the Runcept runtime server implementation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/runcept/runcept/pkg/auth"
	"github.com/runcept/runcept/pkg/eventbus"
	"github.com/runcept/runcept/pkg/ratelimit"
	"github.com/runcept/runcept/pkg/services"
	"github.com/runcept/runcept/pkg/store"
	"github.com/runcept/runcept/pkg/tools"
	"github.com/runcept/runcept/pkg/web"
)

type ServerConfig struct {
	JWTSecret     string
	StoreURL      string
	ToolsURL      string
	ToolsToken    string
	RateLimit     int
	RateLimitMode string
	CORSOrigins   []string
	EventBus      string
	KafkaBrokers  []string
}

type Server struct {
	logger   *slog.Logger
	config   ServerConfig
	store    *store.Redis
	limiter  ratelimit.Limiter
	audit    eventbus.Publisher
	executor tools.Executor
	validate *validator.Validate
}

func NewServer(ctx context.Context, logger *slog.Logger, config ServerConfig) (*Server, error) {
	stateStore, err := store.NewRedis(ctx, store.RedisConfig{URL: config.StoreURL})
	if err != nil {
		return nil, err
	}

	limiter, err := newLimiter(config, stateStore)
	if err != nil {
		return nil, err
	}

	audit, err := newAuditBus(config, logger)
	if err != nil {
		return nil, err
	}

	executor := tools.NewClient(tools.Config{
		URL:   config.ToolsURL,
		Token: config.ToolsToken,
	}, logger)

	return &Server{
		logger:   logger,
		config:   config,
		store:    stateStore,
		limiter:  limiter,
		audit:    audit,
		executor: executor,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

func newLimiter(config ServerConfig, stateStore *store.Redis) (ratelimit.Limiter, error) {
	switch config.RateLimitMode {
	case "local", "":
		return ratelimit.NewLocal(config.RateLimit), nil
	case "redis":
		return ratelimit.NewRedis(stateStore.Client(), config.RateLimit), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter mode: %s", config.RateLimitMode)
	}
}

func newAuditBus(config ServerConfig, logger *slog.Logger) (eventbus.Publisher, error) {
	switch config.EventBus {
	case "kafka":
		return eventbus.NewKafkaPublisher(config.KafkaBrokers, logger)
	case "gochannel":
		return eventbus.NewWatermillPublisher(eventbus.NewGoChannel(logger)), nil
	case "none", "":
		return eventbus.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown event bus type: %s", config.EventBus)
	}
}

func (s *Server) App() *fiber.App {
	runtime := services.NewRuntime(s.store, s.executor, s.audit, s.logger)
	handlers := web.NewRuntimeHandlers(runtime, s.validate)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.CORSOrigins,
	}))
	app.Use(web.NewMetricsMiddleware())

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", web.MetricsHandler())

	authMiddleware := web.NewAuthMiddleware(auth.NewVerifier(s.config.JWTSecret), s.logger)
	limitMiddleware := web.NewRateLimitMiddleware(s.limiter, s.logger)

	e := app.Group("/executions", authMiddleware, limitMiddleware)
	e.Get("/:id/input", handlers.GetInput)
	e.Post("/:id/output", handlers.SetOutput)
	e.Get("/:id/context", handlers.GetContext)
	e.Post("/:id/condition", handlers.SetCondition)
	e.Get("/:id/variables/:key", handlers.GetVariable)
	e.Put("/:id/variables/:key", handlers.SetVariable)

	ta := app.Group("/tool-actions", authMiddleware, limitMiddleware)
	ta.Post("/execute", handlers.ExecuteToolAction)

	return app
}

func (s *Server) Start(ctx context.Context, port int) error {
	app := s.App()

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down runtime server")

		if err := app.Shutdown(); err != nil {
			s.logger.Error("Failed to shut down server cleanly", "error", err)
		}
	}()

	s.logger.InfoContext(ctx, "Runtime server listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}

func (s *Server) Close(ctx context.Context) {
	if err := s.audit.Close(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to close audit bus", "error", err)
	}

	if err := s.executor.Close(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to close tool client", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to close state store", "error", err)
	}
}
