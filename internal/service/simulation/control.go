package simulation

import (
	"math"

	"github.com/sungminna/options-sandbox/internal/domain/model"
)

const (
	tickFallbackVolatility = 50
	tickWickRatio          = 0.3
	// DefaultNudge is the price shift applied when a nudge omits its amount
	DefaultNudge = 100
)

// SetParams overwrites drift and/or volatility. Nil leaves a field
// unchanged; no range checks are applied.
func (s *Store) SetParams(st *State, drift, volatility *float64) Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	if drift != nil {
		st.drift = *drift
	}
	if volatility != nil {
		st.volatility = *volatility
	}
	return st.snapshot(0)
}

// ToggleAuto flips the paused flag and returns the new value. Missed
// boundaries are filled by the next Advance after resuming.
func (s *Store) ToggleAuto(st *State) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.paused = !st.paused
	return st.paused
}

// ManualTick appends one candle forced in dir, exactly one interval after
// the last candle, regardless of wall-clock alignment
func (s *Store) ManualTick(st *State, dir model.Direction) model.Candle {
	st.mu.Lock()
	defer st.mu.Unlock()

	vol := st.volatility
	if vol == 0 {
		vol = tickFallbackVolatility
	}
	sign := 1.0
	if dir == model.DirectionDown {
		sign = -1.0
	}

	move := vol * sign * (1 + s.src.Float64()*0.5)
	open := st.lastClose
	close := math.Max(1, math.Round(open+move))
	high := math.Max(open, close) + s.src.Float64()*st.volatility*tickWickRatio
	low := math.Max(1, math.Min(open, close)-s.src.Float64()*st.volatility*tickWickRatio)

	c := model.Candle{Time: st.lastTime + st.interval, Open: open, High: high, Low: low, Close: close}
	st.append(c)
	s.record(st.key, []model.Candle{c}, true)
	return c
}

// Nudge shifts the last close by amount in dir without appending a candle.
// The next candle opens at the shifted price.
func (s *Store) Nudge(st *State, dir model.Direction, amount float64) float64 {
	st.mu.Lock()
	defer st.mu.Unlock()

	if dir == model.DirectionDown {
		amount = -amount
	}
	st.lastClose = math.Max(1, st.lastClose+amount)
	return st.lastClose
}
