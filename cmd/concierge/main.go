package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appconfig "github.com/zavatech/agent-concierge/internal/config"
	"github.com/zavatech/agent-concierge/internal/server"
	"github.com/zavatech/agent-concierge/pkg/config"
	"github.com/zavatech/agent-concierge/pkg/logger"
	"github.com/zavatech/agent-concierge/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Missing required configuration fails here, before any request handling
	cfg := &appconfig.AppConfig{}
	if err := config.GetConfig(cfg, os.Getenv("CONFIG_FILE"), true); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
	})
	cfg.LogConfig(log)

	s, err := server.New(cfg, log)
	if err != nil {
		log.Error("Failed to create server", logger.ErrorField(err))
		return fmt.Errorf("failed to create server: %w", err)
	}

	errChan, closer, gracefulCloser := s.Listen()
	log.Info("Concierge service started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	mergedErrChan := utils.MergeErrorChans(errChan)

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))
		gracefulCloser()
		log.Info("Server exited gracefully")
	case err := <-mergedErrChan:
		if err != nil {
			log.Error("Fatal server error occurred", logger.ErrorField(err))
			closer()
			return fmt.Errorf("server error: %w", err)
		}
		log.Info("Server exited normally")
	}

	return nil
}
