package market

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
	"github.com/sungminna/options-sandbox/internal/service/simulation"
)

const (
	DefaultTicker    = "BTC/USD"
	DefaultTimeframe = model.Timeframe1m

	DefaultCount = 80
	MinCount     = 20
	MaxCount     = 300

	// random walk bounds of the instrument last price
	walkStep     = 120
	walkMinPrice = 1000
	walkMaxPrice = 10_000_000
)

// Service serves instrument prices and simulated candle windows
type Service struct {
	instruments repository.InstrumentRepository
	sim         *simulation.Store
	src         simulation.Source
	archive     repository.CandleArchive
	logger      *slog.Logger
}

// NewService creates a new market service. src drives the price random walk.
func NewService(
	instruments repository.InstrumentRepository,
	sim *simulation.Store,
	src simulation.Source,
	logger *slog.Logger,
) *Service {
	return &Service{
		instruments: instruments,
		sim:         sim,
		src:         simulation.Locked(src),
		logger:      logger.With("component", "market"),
	}
}

// ListSymbols returns every instrument ordered by ticker
func (s *Service) ListSymbols(ctx context.Context) ([]*model.Instrument, error) {
	instruments, err := s.instruments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return instruments, nil
}

// PriceQuote is the result of one random-walk step
type PriceQuote struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
	Ts     int64   `json:"ts"` // unix milliseconds
}

// WalkPrice moves the instrument's last price by a random step and persists it
func (s *Service) WalkPrice(ctx context.Context, ticker string) (*PriceQuote, error) {
	if ticker == "" {
		ticker = DefaultTicker
	}

	move := math.Round((s.src.Float64() - 0.5) * walkStep)
	instrument, err := s.instruments.ShiftPrice(ctx, ticker, move, walkMinPrice, walkMaxPrice)
	if err != nil {
		return nil, err
	}

	return &PriceQuote{
		Ticker: instrument.Ticker,
		Price:  instrument.LastPrice,
		Ts:     time.Now().UnixMilli(),
	}, nil
}

// CandlesQuery selects a simulated series and window size
type CandlesQuery struct {
	Ticker    string
	Timeframe model.Timeframe
	Count     int
}

// CandlesResponse is a window of the simulated series
type CandlesResponse struct {
	Candles   []model.Candle `json:"candles"`
	IsPaused  bool           `json:"isPaused"`
	LastClose float64        `json:"lastClose"`
}

// Candles advances the series to the current boundary and returns its window
func (s *Service) Candles(ctx context.Context, q CandlesQuery) (*CandlesResponse, error) {
	st, err := s.state(ctx, q.Ticker, q.Timeframe)
	if err != nil {
		return nil, err
	}

	if n := s.sim.Advance(st); n > 0 {
		s.logger.Debug("simulation advanced", "key", st.Key().String(), "candles", n)
	}

	snap := s.sim.Snapshot(st, ClampCount(q.Count))
	return &CandlesResponse{
		Candles:   snap.Candles,
		IsPaused:  snap.Paused,
		LastClose: snap.LastClose,
	}, nil
}

// ClampCount bounds a window size to [MinCount, MaxCount]; zero means DefaultCount
func ClampCount(count int) int {
	if count == 0 {
		count = DefaultCount
	}
	return max(MinCount, min(MaxCount, count))
}

// state resolves the series for ticker and tf. A series is only created
// for a ticker listed in the instrument table.
func (s *Service) state(ctx context.Context, ticker string, tf model.Timeframe) (*simulation.State, error) {
	if ticker == "" {
		ticker = DefaultTicker
	}
	if tf == "" {
		tf = DefaultTimeframe
	}
	if _, ok := tf.Seconds(); !ok {
		return nil, apperr.InvalidInput("invalid timeframe")
	}

	key := simulation.Key{Ticker: ticker, Timeframe: tf}
	if st, ok := s.sim.Get(key); ok {
		return st, nil
	}
	if _, err := s.instruments.GetByTicker(ctx, ticker); err != nil {
		return nil, err
	}
	return s.sim.GetOrInit(key, simulation.StartPrice(ticker)), nil
}
