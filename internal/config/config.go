package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SANDBOX_AUTH_JWT_SECRET
const EnvPrefix = "SANDBOX"

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Store      StoreConfig      `mapstructure:"store"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Market     MarketConfig     `mapstructure:"market"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	CookieName string        `mapstructure:"cookie_name"`
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

// PostgresConfig holds PostgreSQL pool settings.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	Migrate         bool          `mapstructure:"migrate"`
}

// ClickHouseConfig holds the candle archive connection.
type ClickHouseConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Addr     []string `mapstructure:"addr"`
	Database string   `mapstructure:"database"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Debug    bool     `mapstructure:"debug"`
}

// ArchiveConfig tunes the candle archiver.
type ArchiveConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	BufferSize int           `mapstructure:"buffer_size"`
}

// SimulationConfig holds simulation settings.
type SimulationConfig struct {
	Seed uint64 `mapstructure:"seed"` // 0 seeds from the clock
}

// MarketConfig holds market endpoint settings.
type MarketConfig struct {
	PriceRateLimit int           `mapstructure:"price_rate_limit"` // requests per second per client
	PriceBurst     int           `mapstructure:"price_burst"`
	StreamInterval time.Duration `mapstructure:"stream_interval"`
}

// SettlementConfig holds the background sweep settings.
type SettlementConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // 0 disables the sweep
}

// SeedConfig lists accounts created at start-up when missing.
type SeedConfig struct {
	Instruments   bool    `mapstructure:"instruments"`
	AdminEmail    string  `mapstructure:"admin_email"`
	AdminPassword string  `mapstructure:"admin_password"`
	DemoEmail     string  `mapstructure:"demo_email"`
	DemoPassword  string  `mapstructure:"demo_password"`
	DemoBalance   float64 `mapstructure:"demo_balance"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.issuer", "options-sandbox")
	v.SetDefault("auth.cookie_name", "token")

	v.SetDefault("store.driver", "memory")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 25)
	v.SetDefault("postgres.min_conns", 5)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("postgres.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("clickhouse.enabled", false)
	v.SetDefault("clickhouse.addr", []string{"localhost:9000"})
	v.SetDefault("clickhouse.database", "default")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.password", "")
	v.SetDefault("clickhouse.debug", false)

	v.SetDefault("archive.interval", 10*time.Second)
	v.SetDefault("archive.buffer_size", 10_000)

	v.SetDefault("simulation.seed", 0)

	v.SetDefault("market.price_rate_limit", 10)
	v.SetDefault("market.price_burst", 20)
	v.SetDefault("market.stream_interval", time.Second)

	v.SetDefault("settlement.sweep_interval", 0)

	v.SetDefault("seed.instruments", true)
	v.SetDefault("seed.admin_email", "")
	v.SetDefault("seed.admin_password", "")
	v.SetDefault("seed.demo_email", "")
	v.SetDefault("seed.demo_password", "")
	v.SetDefault("seed.demo_balance", 10_000)
}

// Load reads defaults, then the optional YAML file at configPath (or
// $SANDBOX_CONFIG), then SANDBOX_* environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}

	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if c.ClickHouse.Enabled && len(c.ClickHouse.Addr) == 0 {
		return errors.New("clickhouse.addr is required when clickhouse is enabled")
	}
	if c.Market.PriceRateLimit <= 0 {
		return errors.New("market.price_rate_limit must be positive")
	}
	if c.Market.StreamInterval <= 0 {
		return errors.New("market.stream_interval must be positive")
	}
	if c.Settlement.SweepInterval < 0 {
		return errors.New("settlement.sweep_interval must not be negative")
	}
	return nil
}
