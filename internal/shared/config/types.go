// Package config defines the typed configuration sections shared across the
// application. Loading and defaulting live in internal/infrastructure/config.
package config

import "fmt"

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	Mode string `mapstructure:"mode"`
}

// GetAddr returns the listen address in host:port form.
func (c ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Backend names accepted in DatabaseConfig.Backend.
const (
	BackendAuto    = "auto"
	BackendMySQL   = "mysql"
	BackendSQLite  = "sqlite"
	BackendFixture = "fixture"
)

// DatabaseConfig holds backend selection and connection settings.
//
// Backend picks the preferred store; "auto" runs the full probe cascade.
// Required makes startup fail instead of falling back when the preferred
// backend is unreachable.
type DatabaseConfig struct {
	Backend  string `mapstructure:"backend" validate:"oneof=auto mysql sqlite fixture"`
	Required bool   `mapstructure:"required"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	SQLitePath string `mapstructure:"sqlite_path"`

	MaxIdleConns    int `mapstructure:"max_idle_conns"`
	MaxOpenConns    int `mapstructure:"max_open_conns"`
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"` // minutes

	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds" validate:"gt=0"`
}

// Cache backend names accepted in CacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig holds result-cache settings.
type CacheConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=memory redis"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"gt=0"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// RedisConfig holds redis connection settings, used when the cache backend
// is redis.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GetAddr returns the redis address in host:port form.
func (c RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds token verification and credential hashing settings.
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret" validate:"required"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console or json
	OutputPath string `mapstructure:"output_path"`
}

// RealtimeConfig holds websocket hub settings.
type RealtimeConfig struct {
	SendBufferSize      int `mapstructure:"send_buffer_size" validate:"gt=0"`
	MaxConnsPerAccount  int `mapstructure:"max_conns_per_account" validate:"gt=0"`
	PingIntervalSeconds int `mapstructure:"ping_interval_seconds" validate:"gt=0"`
}
