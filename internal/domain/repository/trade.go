package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// TradeRepository defines read access to trades. Writes go through LedgerTx.
type TradeRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Trade, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Trade, error)
	// ListExpiredOpen returns OPEN trades with end_at <= now, optionally
	// restricted to one user (uuid.Nil means all users)
	ListExpiredOpen(ctx context.Context, userID uuid.UUID, now time.Time) ([]*model.Trade, error)
}
