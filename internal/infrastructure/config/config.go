// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	sharedconfig "parceldesk/internal/shared/config"
)

type Config struct {
	Server   sharedconfig.ServerConfig   `mapstructure:"server"`
	Database sharedconfig.DatabaseConfig `mapstructure:"database"`
	Cache    sharedconfig.CacheConfig    `mapstructure:"cache"`
	Redis    sharedconfig.RedisConfig    `mapstructure:"redis"`
	Auth     sharedconfig.AuthConfig     `mapstructure:"auth"`
	Logger   sharedconfig.LoggerConfig   `mapstructure:"logger"`
	Realtime sharedconfig.RealtimeConfig `mapstructure:"realtime"`
	Debug    bool                        `mapstructure:"debug"`
}

// Load reads configuration from the given file (optional) and from
// PARCELDESK_-prefixed environment variables, then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PARCELDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// config file is optional when env vars supply everything
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	// Database
	v.SetDefault("database.backend", "auto")
	v.SetDefault("database.required", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "parceldesk")
	v.SetDefault("database.database", "parceldesk")
	v.SetDefault("database.sqlite_path", "data/parceldesk.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.probe_timeout_seconds", 2)

	// Cache
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.key_prefix", "parceldesk:query:")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.bcrypt_cost", 10)

	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")

	// Realtime
	v.SetDefault("realtime.send_buffer_size", 64)
	v.SetDefault("realtime.max_conns_per_account", 8)
	v.SetDefault("realtime.ping_interval_seconds", 30)

	v.SetDefault("debug", false)
}
