// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pollination/guides/internal/clock"
	"github.com/pollination/guides/internal/config"
	"github.com/pollination/guides/internal/logging"
	"github.com/pollination/guides/internal/pollination"
	"github.com/pollination/guides/internal/storage"
	"github.com/pollination/guides/internal/storage/local"
	"github.com/pollination/guides/internal/storage/memory"
)

// App holds the shared, long-lived services for the application: the
// validated configuration, the logger, the authenticated API client, the
// output store and the sleeper used between status polls. It is initialized
// once at startup and handed to the commands that need it.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	client  *pollination.Client
	outputs storage.Provider
	sleeper pollination.Sleeper
}

// GetConfig returns the validated runtime configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetClient returns the authenticated Pollination API client.
func (a *App) GetClient() *pollination.Client {
	return a.client
}

// GetOutputs exposes the configured run output store.
func (a *App) GetOutputs() storage.Provider {
	return a.outputs
}

// GetSleeper returns the sleeper used between job status polls.
func (a *App) GetSleeper() pollination.Sleeper {
	return a.sleeper
}

// NewApp creates and initializes a new App from the loaded configuration.
// It is the central point for service initialization and fails fast when a
// credential is missing or a service cannot be constructed.
func NewApp(_ context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	logger.Info("initializing application services",
		zap.String("base_url", cfg.BaseURL),
		zap.String("org", cfg.Org),
	)

	client, err := pollination.NewClient(pollination.Config{
		BaseURL:           cfg.BaseURL,
		Org:               cfg.Org,
		APIKey:            cfg.APIKey,
		Timeout:           cfg.HTTP.Timeout,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
	}, nil, logger.Named("api"))
	if err != nil {
		return nil, fmt.Errorf("init API client: %w", err)
	}

	var outputs storage.Provider
	switch cfg.Downloads.Provider {
	case "local":
		outputs, err = local.New(cfg.Downloads.Dir, logger.Named("outputs"))
		if err != nil {
			return nil, fmt.Errorf("init output store: %w", err)
		}
	case "memory":
		logger.Info("using in-memory output store; downloads are discarded on exit")
		outputs = memory.New()
	default:
		return nil, fmt.Errorf("unknown downloads provider: %s", cfg.Downloads.Provider)
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		outputs: outputs,
		sleeper: clock.New(),
	}, nil
}

// Close flushes buffered services. It is called by a Cobra hook after the
// command finishes execution.
func (a *App) Close() {
	// Sync can legitimately fail on terminals; there is nowhere left to
	// report it anyway.
	_ = a.logger.Sync()
}
