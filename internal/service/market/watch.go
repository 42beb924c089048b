package market

import (
	"context"
	"time"
)

// Watch polls the series every interval and sends the window whenever its
// last candle, last close or paused flag changes. The channel is closed
// when ctx ends.
func (s *Service) Watch(ctx context.Context, q CandlesQuery, interval time.Duration) (<-chan *CandlesResponse, error) {
	first, err := s.Candles(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make(chan *CandlesResponse, 1)
	out <- first

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := first
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				next, err := s.Candles(ctx, q)
				if err != nil {
					s.logger.Error("candle watch failed", "error", err)
					return
				}
				if !changed(prev, next) {
					continue
				}
				select {
				case out <- next:
					prev = next
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func changed(prev, next *CandlesResponse) bool {
	if prev.IsPaused != next.IsPaused || prev.LastClose != next.LastClose {
		return true
	}
	if len(prev.Candles) != len(next.Candles) {
		return true
	}
	if len(next.Candles) == 0 {
		return false
	}
	return prev.Candles[len(prev.Candles)-1] != next.Candles[len(next.Candles)-1]
}
