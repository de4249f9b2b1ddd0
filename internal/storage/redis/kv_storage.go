// Package redis provides a Redis-backed durable store, selectable as an
// alternative to BadgerDB via storage.engine config.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/bobmcallan/vire-track/internal/config"
	"github.com/bobmcallan/vire-track/internal/interfaces"
)

// keyPrefix namespaces all vire-track keys in a shared Redis instance.
const keyPrefix = "vire-track:"

// KVStorage implements interfaces.KeyValueStorage using Redis.
type KVStorage struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// Manager implements the StorageManager interface for Redis.
type Manager struct {
	kv     *KVStorage
	logger *slog.Logger
}

// NewManager creates a new Redis storage manager and pings the server.
func NewManager(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (interfaces.StorageManager, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Debug("Redis storage manager initialized", "addr", cfg.Addr)

	return &Manager{
		kv:     &KVStorage{rdb: rdb, logger: logger},
		logger: logger,
	}, nil
}

// KeyValueStorage returns the KeyValue storage interface.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the Redis client.
func (m *Manager) Close() error {
	return m.kv.rdb.Close()
}

// Get retrieves a value by key.
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("key not found: %s", key)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set stores a key-value pair.
func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key-value pair.
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// GetAll retrieves all key-value pairs under the vire-track prefix.
func (s *KVStorage) GetAll(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string)

	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		for _, k := range keys {
			val, err := s.rdb.Get(ctx, k).Result()
			if err != nil {
				if err == redis.Nil {
					continue // deleted between scan and get
				}
				return nil, fmt.Errorf("failed to get key %s: %w", k, err)
			}
			result[k[len(keyPrefix):]] = val
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return result, nil
}
