package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// InstrumentRepository implements repository.InstrumentRepository
type InstrumentRepository struct {
	s *Store
}

func (r *InstrumentRepository) Ensure(ctx context.Context, instrument *model.Instrument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if in, ok := r.byTicker(instrument.Ticker); ok {
		in.Name = instrument.Name
		instrument.ID = in.ID
		instrument.LastPrice = in.LastPrice
		instrument.UpdatedAt = in.UpdatedAt
		return nil
	}
	cp := *instrument
	r.s.instruments[cp.ID] = &cp
	return nil
}

// List returns instruments ordered by ticker
func (r *InstrumentRepository) List(ctx context.Context) ([]*model.Instrument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.Instrument, 0, len(r.s.instruments))
	for _, in := range r.s.instruments {
		cp := *in
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (r *InstrumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Instrument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	in, ok := r.s.instruments[id]
	if !ok {
		return nil, apperr.NotFound("instrument not found")
	}
	cp := *in
	return &cp, nil
}

func (r *InstrumentRepository) GetByTicker(ctx context.Context, ticker string) (*model.Instrument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	in, ok := r.byTicker(ticker)
	if !ok {
		return nil, apperr.NotFound("unknown ticker")
	}
	cp := *in
	return &cp, nil
}

func (r *InstrumentRepository) ShiftPrice(ctx context.Context, ticker string, delta, min, max float64) (*model.Instrument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	in, ok := r.byTicker(ticker)
	if !ok {
		return nil, apperr.NotFound("unknown ticker")
	}
	in.LastPrice = math.Max(min, math.Min(max, in.LastPrice+delta))
	in.UpdatedAt = time.Now()
	cp := *in
	return &cp, nil
}

// Delete removes an instrument. Trades keep referencing its id.
func (r *InstrumentRepository) Delete(ctx context.Context, id uuid.UUID) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.instruments, id)
}

// caller holds mu
func (r *InstrumentRepository) byTicker(ticker string) (*model.Instrument, bool) {
	for _, in := range r.s.instruments {
		if in.Ticker == ticker {
			return in, true
		}
	}
	return nil, false
}
