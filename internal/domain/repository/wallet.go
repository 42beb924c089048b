package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// WalletRepository defines read access to wallet transactions. Writes go through LedgerTx.
type WalletRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.WalletTransaction, error)
	ListRecent(ctx context.Context, limit int) ([]*model.WalletTransaction, error)
}
