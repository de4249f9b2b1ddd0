package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bobmcallan/vire-track/internal/config"
	"github.com/bobmcallan/vire-track/internal/interfaces"
	"github.com/bobmcallan/vire-track/internal/storage/badger"
	"github.com/bobmcallan/vire-track/internal/storage/redis"
)

// NewStorageManager creates a storage manager for the configured engine.
func NewStorageManager(ctx context.Context, logger *slog.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	switch cfg.Storage.Engine {
	case "", "badger":
		return badger.NewManager(logger, &cfg.Storage.Badger)
	case "redis":
		return redis.NewManager(ctx, logger, &cfg.Storage.Redis)
	default:
		return nil, fmt.Errorf("unknown storage engine: %s", cfg.Storage.Engine)
	}
}
