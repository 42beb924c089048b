package model

// Timeframe is a fixed candle duration code
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1d  Timeframe = "1d"
)

// Seconds returns the candle interval in seconds
func (tf Timeframe) Seconds() (int64, bool) {
	switch tf {
	case Timeframe1m:
		return 60, true
	case Timeframe5m:
		return 300, true
	case Timeframe15m:
		return 900, true
	case Timeframe1h:
		return 3600, true
	case Timeframe1d:
		return 86400, true
	default:
		return 0, false
	}
}

// Candle is one OHLC bar for a timeframe-aligned boundary
type Candle struct {
	Time  int64   `json:"time"` // unix seconds, aligned to the timeframe
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}
