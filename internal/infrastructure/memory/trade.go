package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// TradeRepository implements repository.TradeRepository
type TradeRepository struct {
	s *Store
}

func (r *TradeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Trade, error) {
	return r.collect(limit, func(t *model.Trade) bool { return t.UserID == userID }), nil
}

func (r *TradeRepository) ListRecent(ctx context.Context, limit int) ([]*model.Trade, error) {
	return r.collect(limit, func(*model.Trade) bool { return true }), nil
}

func (r *TradeRepository) ListExpiredOpen(ctx context.Context, userID uuid.UUID, now time.Time) ([]*model.Trade, error) {
	trades := r.collect(0, func(t *model.Trade) bool {
		if userID != uuid.Nil && t.UserID != userID {
			return false
		}
		return t.IsOpen() && t.IsExpired(now)
	})
	// oldest expiry first
	sort.Slice(trades, func(i, j int) bool { return trades[i].EndAt.Before(trades[j].EndAt) })
	return trades, nil
}

// collect returns matching trades newest first; limit <= 0 means no limit
func (r *TradeRepository) collect(limit int, match func(*model.Trade) bool) []*model.Trade {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	trades := make([]*model.Trade, 0)
	for _, t := range r.s.trades {
		if match(t) {
			trades = append(trades, cloneTrade(t))
		}
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].StartAt.After(trades[j].StartAt) })
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	return trades
}

func cloneTrade(t *model.Trade) *model.Trade {
	cp := *t
	if t.EndPrice != nil {
		v := *t.EndPrice
		cp.EndPrice = &v
	}
	if t.PnL != nil {
		v := *t.PnL
		cp.PnL = &v
	}
	return &cp
}
