package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// WalletRepository implements repository.WalletRepository
type WalletRepository struct {
	s *Store
}

func (r *WalletRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.WalletTransaction, error) {
	return r.collect(limit, func(w *model.WalletTransaction) bool { return w.UserID == userID }), nil
}

func (r *WalletRepository) ListRecent(ctx context.Context, limit int) ([]*model.WalletTransaction, error) {
	return r.collect(limit, func(*model.WalletTransaction) bool { return true }), nil
}

// collect walks the append-only log backwards so results are newest first
func (r *WalletRepository) collect(limit int, match func(*model.WalletTransaction) bool) []*model.WalletTransaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.WalletTransaction, 0)
	for i := len(r.s.walletTxs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if w := r.s.walletTxs[i]; match(w) {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out
}
