package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

type candleArchive struct {
	conn driver.Conn
}

// NewCandleArchive creates a new ClickHouse candle archive
func NewCandleArchive(conn driver.Conn) repository.CandleArchive {
	return &candleArchive{conn: conn}
}

func (r *candleArchive) SaveCandles(ctx context.Context, candles []repository.ArchivedCandle) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO candles_sim (
			ticker, timeframe, time, open, high, low, close, manual, recorded_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	recordedAt := time.Now().UTC()
	for _, c := range candles {
		err := batch.Append(
			c.Ticker,
			string(c.Timeframe),
			time.Unix(c.Candle.Time, 0).UTC(),
			c.Candle.Open,
			c.Candle.High,
			c.Candle.Low,
			c.Candle.Close,
			c.Manual,
			recordedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append candle: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	return nil
}

// GetCandleRange returns archived candles in [from, to], oldest first. A
// boundary archived more than once resolves to its latest recording.
func (r *candleArchive) GetCandleRange(ctx context.Context, ticker string, tf model.Timeframe, from, to time.Time) ([]model.Candle, error) {
	query := `
		SELECT time, open, high, low, close
		FROM candles_sim FINAL
		WHERE ticker = ? AND timeframe = ? AND time >= ? AND time <= ?
		ORDER BY time ASC
	`

	rows, err := r.conn.Query(ctx, query, ticker, string(tf), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var (
			candle model.Candle
			ts     time.Time
		)
		if err := rows.Scan(&ts, &candle.Open, &candle.High, &candle.Low, &candle.Close); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candle.Time = ts.Unix()
		candles = append(candles, candle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candles: %w", err)
	}

	return candles, nil
}
