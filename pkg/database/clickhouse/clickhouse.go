package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config holds ClickHouse configuration
type Config struct {
	Addr     []string
	Database string
	Username string
	Password string
	Debug    bool
	TLS      *tls.Config
	Logger   *slog.Logger
}

// NewConn creates a new ClickHouse connection
func NewConn(ctx context.Context, cfg *Config) (driver.Conn, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	options := &clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Debugf: func(format string, v ...interface{}) {
			logger.Debug(fmt.Sprintf(format, v...), "component", "clickhouse")
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:      time.Second * 10,
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}

	if cfg.TLS != nil {
		options.TLS = cfg.TLS
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return conn, nil
}

// candlesSimDDL stores simulated candles. Re-archived boundaries collapse
// to the newest recorded_at on merge.
const candlesSimDDL = `
CREATE TABLE IF NOT EXISTS candles_sim (
	ticker      LowCardinality(String),
	timeframe   LowCardinality(String),
	time        DateTime('UTC'),
	open        Float64,
	high        Float64,
	low         Float64,
	close       Float64,
	manual      Bool,
	recorded_at DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(recorded_at)
PARTITION BY toYYYYMM(time)
ORDER BY (ticker, timeframe, time)
`

// Migrate creates the archive tables when missing
func Migrate(ctx context.Context, conn driver.Conn) error {
	if err := conn.Exec(ctx, candlesSimDDL); err != nil {
		return fmt.Errorf("failed to create candles_sim: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection
func Close(conn driver.Conn) error {
	if conn != nil {
		return conn.Close()
	}
	return nil
}
