// Package app wires the application components together.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/config"
	"github.com/bobmcallan/vire-track/internal/engine"
	"github.com/bobmcallan/vire-track/internal/feed"
	"github.com/bobmcallan/vire-track/internal/handlers"
	"github.com/bobmcallan/vire-track/internal/interfaces"
	"github.com/bobmcallan/vire-track/internal/models"
	"github.com/bobmcallan/vire-track/internal/positions"
	"github.com/bobmcallan/vire-track/internal/realtime"
	"github.com/bobmcallan/vire-track/internal/storage"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager
	Engine  *engine.Engine
	Hub     *realtime.Hub

	HealthHandler    *handlers.HealthHandler
	DashboardHandler *handlers.DashboardHandler
	WSHandler        *handlers.WSHandler

	unsubscribe func()
}

// New initializes the application with all dependencies.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger, slogger *slog.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(ctx, slogger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = storageManager
	kv := storageManager.KeyValueStorage()

	store, err := engine.NewCacheStore(ctx, kv, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}

	snapshots, err := engine.NewSnapshotCache(ctx, kv, cfg.Snapshot.TTL(), logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize snapshot cache: %w", err)
	}

	client := feed.NewClient(cfg.Feed.URL, cfg.Feed.APIKey)
	orch := engine.NewOrchestrator(
		client,
		store,
		feed.NewExecutor(),
		engine.NewPlanner(cfg.Feed.LookbackMonths),
		cfg.Feed.BatchSize,
		cfg.Feed.MaxRetries,
		logger,
	)
	a.Engine = engine.New(store, snapshots, orch, cfg.Feed.PollInterval(), logger)

	a.Hub = realtime.NewHub()
	a.unsubscribe = a.Engine.OnPriceChange(func(deltas []models.PriceDelta) {
		a.Hub.BroadcastJSON(map[string]any{
			"type":   "price_deltas",
			"deltas": deltas,
		})
	})

	source, err := positions.NewFileSource(cfg.Positions.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load position source: %w", err)
	}

	a.HealthHandler = handlers.NewHealthHandler(logger)
	a.DashboardHandler = handlers.NewDashboardHandler(logger, a.Engine, source)
	a.WSHandler = handlers.NewWSHandler(logger, a.Hub)

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// Close releases all application resources.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.Engine != nil {
		a.Engine.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close storage")
		}
	}
}
