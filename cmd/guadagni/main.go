package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appamqp "guadagni/internal/amqp"
	"guadagni/internal/auth"
	"guadagni/internal/backend"
	"guadagni/internal/config"
	"guadagni/internal/export"
	"guadagni/internal/log"
	"guadagni/internal/shell"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New("guadagni", log.Config{Level: slog.LevelInfo})
	log.SetDefault(logger)

	logger.Info("Starting guadagni")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// AMQP is optional: without it days are closed locally and session
	// events only come from the local provider.
	var amqpClient *appamqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.SessionQueue, cfg.ExportQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without broker", "error", err)
		} else {
			defer amqpClient.Close()
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"session_queue", cfg.SessionQueue,
				"export_queue", cfg.ExportQueue)
		}
	}

	var publisher export.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	provider := auth.NewLocal()
	exporter := export.NewExporter(result.Backend, publisher, logger.WithComponent("export"))

	app := shell.New(shell.Options{
		Store:       result.Backend,
		Provider:    provider,
		Exporter:    exporter,
		Logger:      logger.WithComponent("shell"),
		LoadTimeout: cfg.LoadTimeout,
	})

	monitor := auth.NewMonitor()
	monitor.Notify(app.HandleSession)
	monitor.Attach(provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Forward broker session events into the monitor alongside the local
	// provider's.
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeSessionEvents(ctx, func(msg *appamqp.SessionEventMessage) error {
				monitor.HandleEvent(auth.Event{Present: msg.Present, UserID: msg.UserID})
				return nil
			})
			if err != nil && err != context.Canceled {
				// Provider failures are reported, never fatal: the app keeps
				// running on the local provider until the broker recovers.
				logger.Error("Session event consumption failed", "error", &auth.SessionError{Err: err})
			}
		}()
	}

	logger.Info("guadagni running",
		"backend", backendConfig.Type.String(),
		"amqp_enabled", amqpClient != nil,
		"view", string(app.CurrentView()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	done := make(chan struct{})
	go func() {
		app.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("guadagni stopped gracefully")
	case <-time.After(10 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
