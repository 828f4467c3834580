package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/runcept/runcept/pkg/log"
	"github.com/runcept/runcept/pkg/otelhelper"
)

const defaultPort = 8090

func main() {
	logger := log.WithModule("runtime")

	cmd := &cli.Command{
		Name:                  "runcept-runtime",
		Usage:                 "Runtime execution context service for sandboxed job scripts",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the runtime server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Usage:    "Shared secret verifying execution tokens",
				Required: true,
				Sources:  cli.EnvVars("JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:     "store-url",
				Usage:    "Redis/Valkey connection URL for the execution state store",
				Required: true,
				Sources:  cli.EnvVars("STORE_URL"),
			},
			&cli.StringFlag{
				Name:     "tools-url",
				Usage:    "Base URL of the tool-execution subsystem",
				Required: true,
				Sources:  cli.EnvVars("TOOLS_URL"),
			},
			&cli.StringFlag{
				Name:    "tools-token",
				Usage:   "Service-to-service token for the tool-execution subsystem",
				Sources: cli.EnvVars("TOOLS_TOKEN"),
			},
			&cli.IntFlag{
				Name:    "rate-limit",
				Usage:   "Requests per minute allowed per execution",
				Value:   100,
				Sources: cli.EnvVars("RATE_LIMIT_PER_MIN"),
			},
			&cli.StringFlag{
				Name:    "rate-limit-mode",
				Usage:   "Rate limiter backend (local, redis); use redis when running more than one instance",
				Value:   "local",
				Sources: cli.EnvVars("RATE_LIMIT_MODE"),
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Usage:   "Comma-separated list of allowed CORS origins",
				Sources: cli.EnvVars("CORS_ORIGINS"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Audit event bus type (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses for the audit bus",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Runcept runtime")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
				if _, err := otelhelper.NewTracer(ctx, "runcept-runtime"); err != nil {
					logger.WarnContext(ctx, "Failed to initialize tracing", "error", err)
				}
			}

			server, err := NewServer(ctx, logger, ServerConfig{
				JWTSecret:     command.String("jwt-secret"),
				StoreURL:      command.String("store-url"),
				ToolsURL:      command.String("tools-url"),
				ToolsToken:    command.String("tools-token"),
				RateLimit:     command.Int("rate-limit"),
				RateLimitMode: command.String("rate-limit-mode"),
				CORSOrigins:   splitList(command.String("cors-origins")),
				EventBus:      command.String("event-bus"),
				KafkaBrokers:  splitList(command.String("kafka-brokers")),
			})
			if err != nil {
				return err
			}
			defer server.Close(ctx)

			return server.Start(ctx, command.Int("port"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("Runtime server exited with error", "error", err)
		os.Exit(1)
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}

	return parts
}
