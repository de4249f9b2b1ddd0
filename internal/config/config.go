package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Feed      FeedConfig      `toml:"feed"`
	Snapshot  SnapshotConfig  `toml:"snapshot"`
	Positions PositionsConfig `toml:"positions"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
}

// PositionsConfig locates the tracked-position source maintained by the
// external CRUD layer.
type PositionsConfig struct {
	Path string `toml:"path"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// FeedConfig contains remote price feed settings.
type FeedConfig struct {
	URL                 string `toml:"url"`
	APIKey              string `toml:"api_key"`
	BatchSize           int    `toml:"batch_size"`
	MaxRetries          int    `toml:"max_retries"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	LookbackMonths      int    `toml:"lookback_months"`
}

// PollInterval returns the live-price polling interval.
func (f FeedConfig) PollInterval() time.Duration {
	return time.Duration(f.PollIntervalSeconds) * time.Second
}

// SnapshotConfig contains dashboard snapshot cache settings.
type SnapshotConfig struct {
	TTLHours int `toml:"ttl_hours"`
}

// TTL returns the snapshot time-to-live.
func (s SnapshotConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Engine string       `toml:"engine"` // "badger" or "redis"
	Badger BadgerConfig `toml:"badger"`
	Redis  RedisConfig  `toml:"redis"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// RedisConfig contains Redis-specific settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies TRACK_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("TRACK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TRACK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if url := os.Getenv("TRACK_FEED_URL"); url != "" {
		config.Feed.URL = url
	}
	if key := os.Getenv("TRACK_FEED_API_KEY"); key != "" {
		config.Feed.APIKey = key
	}
	if path := os.Getenv("TRACK_POSITIONS_PATH"); path != "" {
		config.Positions.Path = path
	}
	if engine := os.Getenv("TRACK_STORAGE_ENGINE"); engine != "" {
		config.Storage.Engine = engine
	}
	if badgerPath := os.Getenv("TRACK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if addr := os.Getenv("TRACK_REDIS_ADDR"); addr != "" {
		config.Storage.Redis.Addr = addr
	}
	if level := os.Getenv("TRACK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
