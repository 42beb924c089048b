package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

type ledgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a ledger store running each unit in a
// SERIALIZABLE transaction
func NewLedgerStore(pool *pgxpool.Pool) repository.LedgerStore {
	return &ledgerStore{pool: pool}
}

// WithinTx commits when fn succeeds and rolls back otherwise. Serialization
// failures surface as apperr.Conflict and are not retried.
func (s *ledgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return runTx(ctx, tx, fn)
}

func runTx(ctx context.Context, tx txn, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	defer tx.Rollback(ctx)

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		if isSerializationFailure(err) {
			return apperr.Conflict("concurrent update, retry the request", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return apperr.Conflict("concurrent update, retry the request", err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx txn
}

func (l *ledgerTx) LockUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return getUser(ctx, l.tx, query, userID)
}

func (l *ledgerTx) AddBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE users
		SET balance = balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING balance
	`
	var balance decimal.Decimal
	if err := l.tx.QueryRow(ctx, query, userID, delta).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, apperr.NotFound("user not found")
		}
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}
	return balance, nil
}

func (l *ledgerTx) CreateTrade(ctx context.Context, trade *model.Trade) error {
	query := `
		INSERT INTO trades (id, user_id, symbol_id, ticker, direction, stake, start_price, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := l.tx.Exec(ctx, query,
		trade.ID, trade.UserID, trade.InstrumentID, trade.Ticker, string(trade.Direction),
		trade.Stake, trade.StartPrice, trade.StartAt, trade.EndAt, string(trade.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

func (l *ledgerTx) SettleTrade(ctx context.Context, tradeID uuid.UUID, endPrice float64, pnl decimal.Decimal, settledAt time.Time) error {
	query := `
		UPDATE trades
		SET status = 'SETTLED', end_price = $2, pnl = $3, settled_at = $4
		WHERE id = $1 AND status = 'OPEN'
	`
	tag, err := l.tx.Exec(ctx, query, tradeID, endPrice, pnl, settledAt)
	if err != nil {
		return fmt.Errorf("failed to settle trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrTradeNotOpen
	}
	return nil
}

func (l *ledgerTx) CreateWalletTransaction(ctx context.Context, wtx *model.WalletTransaction) error {
	query := `
		INSERT INTO wallet_txs (
			id, user_id, type, amount, status, note, method,
			bank_name, account_name, account_number, card_last4, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := l.tx.Exec(ctx, query,
		wtx.ID, wtx.UserID, string(wtx.Type), wtx.Amount, string(wtx.Status), wtx.Note, string(wtx.Method),
		wtx.BankName, wtx.AccountName, wtx.AccountNumber, wtx.CardLast4, wtx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}
	return nil
}
