package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 4251,
			Host: "localhost",
		},
		Feed: FeedConfig{
			URL:                 "http://localhost:4252",
			BatchSize:           4,
			MaxRetries:          3,
			PollIntervalSeconds: 60,
			LookbackMonths:      6,
		},
		Snapshot: SnapshotConfig{
			TTLHours: 24,
		},
		Positions: PositionsConfig{
			Path: "./data/positions.json",
		},
		Storage: StorageConfig{
			Engine: "badger",
			Badger: BadgerConfig{
				Path: "./data/vire-track",
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
