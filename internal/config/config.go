// Package config loads and validates the Cardea configuration with Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/openhealth-tools/cardea/internal/domain"
)

// Load reads configuration from the given file, falling back to
// defaults for unset keys. Environment variables with the CARDEA_
// prefix override file values (CARDEA_SERVER_PORT=9090). An empty path
// searches for cardea.yaml in the working directory; a missing file is
// not an error, the defaults apply.
func Load(path string) (*domain.Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CARDEA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("cardea")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := domain.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := domain.DefaultConfig()

	v.SetDefault("tier", string(defaults.Tier))
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.readTimeout", defaults.Server.ReadTimeout)
	v.SetDefault("server.writeTimeout", defaults.Server.WriteTimeout)
	v.SetDefault("repository.driver", defaults.Repository.Driver)
	v.SetDefault("repository.sqlitePath", defaults.Repository.SQLitePath)
	v.SetDefault("cache.type", defaults.Cache.Type)
	v.SetDefault("cache.localMaxSize", defaults.Cache.LocalMaxSize)
	v.SetDefault("cache.localTtl", defaults.Cache.LocalTTL)
	v.SetDefault("eventBus.type", defaults.EventBus.Type)
	v.SetDefault("eventBus.channelBufferSize", defaults.EventBus.ChannelBufferSize)
	v.SetDefault("rules.source", defaults.Rules.Source)
	v.SetDefault("rules.healthRulesPath", defaults.Rules.HealthRulesPath)
	v.SetDefault("rules.adviceRulesPath", defaults.Rules.AdviceRulesPath)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.serviceName", defaults.Tracing.ServiceName)
}

// Validate checks the configuration section by section.
func Validate(cfg *domain.Config) error {
	if err := validateTier(cfg.Tier); err != nil {
		return err
	}
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateRepository(&cfg.Repository); err != nil {
		return err
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return err
	}
	if err := validateEventBus(&cfg.EventBus); err != nil {
		return err
	}
	if err := validateRules(&cfg.Rules); err != nil {
		return err
	}
	return validateLogging(&cfg.Logging)
}

func validateTier(tier domain.Tier) error {
	switch tier {
	case domain.TierCommunity, domain.TierPro:
		return nil
	default:
		return fmt.Errorf("tier: unsupported tier '%s'", tier)
	}
}

func validateServer(cfg *domain.ServerConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("server.port: invalid port %d", cfg.Port)
	}
	return nil
}

func validateRepository(cfg *domain.RepositoryConfig) error {
	switch cfg.Driver {
	case "sqlite":
		if cfg.SQLitePath == "" {
			return errors.New("repository.sqlitePath: must be specified for sqlite driver")
		}
	case "postgres":
		if cfg.PostgresUser == "" {
			return errors.New("repository.postgresUser: must be specified for postgres driver")
		}
	default:
		return fmt.Errorf("repository.driver: unsupported driver '%s'", cfg.Driver)
	}
	return nil
}

func validateCache(cfg *domain.CacheConfig) error {
	switch cfg.Type {
	case "memory":
		return nil
	case "redis":
		if cfg.RedisAddr == "" {
			return errors.New("cache.redisAddr: must be specified for redis cache")
		}
		return nil
	default:
		return fmt.Errorf("cache.type: unsupported type '%s'", cfg.Type)
	}
}

func validateEventBus(cfg *domain.EventBusConfig) error {
	switch cfg.Type {
	case "channel":
		return nil
	case "nats":
		if cfg.NATSUrl == "" {
			return errors.New("eventBus.natsUrl: must be specified for nats bus")
		}
		return nil
	default:
		return fmt.Errorf("eventBus.type: unsupported type '%s'", cfg.Type)
	}
}

func validateRules(cfg *domain.RulesConfig) error {
	switch cfg.Source {
	case "csv":
		if cfg.HealthRulesPath == "" {
			return errors.New("rules.healthRulesPath: must be specified for csv source")
		}
		if cfg.AdviceRulesPath == "" {
			return errors.New("rules.adviceRulesPath: must be specified for csv source")
		}
		return nil
	case "repository":
		return nil
	default:
		return fmt.Errorf("rules.source: unsupported source '%s'", cfg.Source)
	}
}

func validateLogging(cfg *domain.LoggingConfig) error {
	valid := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !valid[strings.ToLower(cfg.Level)] {
		return fmt.Errorf("logging.level: unsupported level '%s'", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported format '%s'", cfg.Format)
	}
}
