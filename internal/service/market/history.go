package market

import (
	"context"
	"fmt"
	"time"

	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

// maxHistorySpan bounds one archive query
const maxHistorySpan = 31 * 24 * time.Hour

// WithArchive enables History reads from the candle archive
func (s *Service) WithArchive(archive repository.CandleArchive) *Service {
	s.archive = archive
	return s
}

// HistoryQuery selects archived candles of one series
type HistoryQuery struct {
	Ticker    string
	Timeframe model.Timeframe
	From      time.Time
	To        time.Time
}

// History returns archived candles between From and To, oldest first.
// A zero To means now; a zero From means one day before To.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]model.Candle, error) {
	if s.archive == nil {
		return nil, apperr.NotFound("candle archive disabled")
	}
	if q.Ticker == "" {
		q.Ticker = DefaultTicker
	}
	if q.Timeframe == "" {
		q.Timeframe = DefaultTimeframe
	}
	if _, ok := q.Timeframe.Seconds(); !ok {
		return nil, apperr.InvalidInput("invalid timeframe")
	}
	if q.To.IsZero() {
		q.To = time.Now()
	}
	if q.From.IsZero() {
		q.From = q.To.Add(-24 * time.Hour)
	}
	if q.From.After(q.To) || q.To.Sub(q.From) > maxHistorySpan {
		return nil, apperr.InvalidInput("invalid range")
	}

	candles, err := s.archive.GetCandleRange(ctx, q.Ticker, q.Timeframe, q.From, q.To)
	if err != nil {
		return nil, fmt.Errorf("failed to read candle archive: %w", err)
	}
	if candles == nil {
		candles = []model.Candle{}
	}
	return candles, nil
}
