package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// ErrTradeNotOpen is returned by LedgerTx.SettleTrade when the trade was
// already settled by someone else
var ErrTradeNotOpen = errors.New("trade is not open")

// LedgerTx is the set of writes allowed inside one atomic ledger unit.
// Every balance change and its record commit or roll back together.
type LedgerTx interface {
	// LockUser reads the user row and holds it until the unit ends
	LockUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// AddBalance adds delta to the user's balance and returns the new balance
	AddBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	CreateTrade(ctx context.Context, trade *model.Trade) error
	// SettleTrade moves an OPEN trade to SETTLED with its end price and pnl.
	// Returns ErrTradeNotOpen if the trade is no longer OPEN.
	SettleTrade(ctx context.Context, tradeID uuid.UUID, endPrice float64, pnl decimal.Decimal, settledAt time.Time) error
	CreateWalletTransaction(ctx context.Context, wtx *model.WalletTransaction) error
}

// LedgerStore runs fn inside a serializable transaction. fn's error rolls
// the whole unit back and is returned unchanged.
type LedgerStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
