package domain

import "time"

// Config holds the complete Cardea configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`

	// Tier selects which backends the components run on.
	Tier Tier `mapstructure:"tier"`

	Repository RepositoryConfig `mapstructure:"repository"`
	Cache      CacheConfig      `mapstructure:"cache"`
	EventBus   EventBusConfig   `mapstructure:"eventBus"`

	Rules RulesConfig `mapstructure:"rules"`

	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// RulesConfig points at the externally editable rule tables.
type RulesConfig struct {
	// Source selects where tables are loaded from: "csv" or "repository".
	Source string `mapstructure:"source"`

	// CSV paths (Source == "csv")
	HealthRulesPath string `mapstructure:"healthRulesPath"`
	AdviceRulesPath string `mapstructure:"adviceRulesPath"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // seconds
}

// LoggingConfig configures slog output and optional file rotation.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text

	// File enables rotated file output when set; empty logs to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMb"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

// TracingConfig toggles OpenTelemetry span emission.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"serviceName"`
}

// Tier names a deployment profile.
type Tier string

const (
	// TierCommunity runs on SQLite, in-process channels and the LRU cache.
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL, NATS and Redis.
	TierPro Tier = "pro"
)

// DefaultConfig is the Community tier baseline.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./cardea.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Rules: RulesConfig{
			Source:          "csv",
			HealthRulesPath: "./data/health_rules.csv",
			AdviceRulesPath: "./data/advice_rules.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "cardea",
		},
	}
}

// ProConfig is the Pro tier baseline over local backends.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "cardea",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Rules.Source = "repository"
	cfg.Tracing.Enabled = true
	return cfg
}
