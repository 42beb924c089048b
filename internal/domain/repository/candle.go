package repository

import (
	"context"
	"time"

	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// ArchivedCandle is a simulated candle tagged with its simulation key
type ArchivedCandle struct {
	Ticker    string
	Timeframe model.Timeframe
	Candle    model.Candle
	Manual    bool // produced by an operator tick
}

// CandleArchive defines methods for the candle time-series store (ClickHouse)
type CandleArchive interface {
	SaveCandles(ctx context.Context, candles []ArchivedCandle) error
	GetCandleRange(ctx context.Context, ticker string, tf model.Timeframe, from, to time.Time) ([]model.Candle, error)
}
