package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

// WithinTx runs fn as one ledger unit. Units run one at a time; writes are
// staged and applied under the table lock only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &ledgerTx{
		s:        s,
		balances: make(map[uuid.UUID]decimal.Decimal),
		settled:  make(map[uuid.UUID]*model.Trade),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

type ledgerTx struct {
	s         *Store
	balances  map[uuid.UUID]decimal.Decimal
	trades    []*model.Trade
	settled   map[uuid.UUID]*model.Trade
	walletTxs []*model.WalletTransaction
}

func (tx *ledgerTx) LockUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	u, ok := tx.s.users[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	if b, ok := tx.balances[userID]; ok {
		cp.Balance = b
	}
	return &cp, nil
}

func (tx *ledgerTx) AddBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	user, err := tx.LockUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := user.Balance.Add(delta)
	tx.balances[userID] = balance
	return balance, nil
}

func (tx *ledgerTx) CreateTrade(ctx context.Context, trade *model.Trade) error {
	tx.trades = append(tx.trades, cloneTrade(trade))
	return nil
}

func (tx *ledgerTx) SettleTrade(ctx context.Context, tradeID uuid.UUID, endPrice float64, pnl decimal.Decimal, settledAt time.Time) error {
	if _, done := tx.settled[tradeID]; done {
		return repository.ErrTradeNotOpen
	}

	tx.s.mu.RLock()
	t, ok := tx.s.trades[tradeID]
	var cp *model.Trade
	if ok {
		cp = cloneTrade(t)
	}
	tx.s.mu.RUnlock()

	if !ok {
		return apperr.NotFound("trade not found")
	}
	if !cp.IsOpen() {
		return repository.ErrTradeNotOpen
	}

	cp.Status = model.TradeStatusSettled
	cp.EndPrice = &endPrice
	cp.PnL = &pnl
	tx.settled[tradeID] = cp
	return nil
}

func (tx *ledgerTx) CreateWalletTransaction(ctx context.Context, wtx *model.WalletTransaction) error {
	cp := *wtx
	tx.walletTxs = append(tx.walletTxs, &cp)
	return nil
}

func (tx *ledgerTx) commit() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	now := time.Now()
	for id, balance := range tx.balances {
		if u, ok := tx.s.users[id]; ok {
			u.Balance = balance
			u.UpdatedAt = now
		}
	}
	for _, t := range tx.trades {
		tx.s.trades[t.ID] = t
	}
	for id, t := range tx.settled {
		tx.s.trades[id] = t
	}
	tx.s.walletTxs = append(tx.s.walletTxs, tx.walletTxs...)
}
