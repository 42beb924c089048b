package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

const walletColumns = `id, user_id, type, amount, status, note, method, bank_name, account_name, account_number, card_last4, created_at`

type walletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new PostgreSQL wallet transaction repository
func NewWalletRepository(pool *pgxpool.Pool) repository.WalletRepository {
	return &walletRepository{pool: pool}
}

func (r *walletRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.WalletTransaction, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallet_txs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

func (r *walletRepository) ListRecent(ctx context.Context, limit int) ([]*model.WalletTransaction, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallet_txs
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *walletRepository) list(ctx context.Context, query string, args ...any) ([]*model.WalletTransaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.WalletTransaction
	for rows.Next() {
		wtx, err := scanWalletTx(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		txs = append(txs, wtx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	return txs, nil
}

func scanWalletTx(row pgx.Row) (*model.WalletTransaction, error) {
	var (
		wtx    model.WalletTransaction
		txType string
		status string
		method string
	)
	err := row.Scan(
		&wtx.ID, &wtx.UserID, &txType, &wtx.Amount, &status, &wtx.Note, &method,
		&wtx.BankName, &wtx.AccountName, &wtx.AccountNumber, &wtx.CardLast4, &wtx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	wtx.Type = model.WalletTxType(txType)
	wtx.Status = model.WalletTxStatus(status)
	wtx.Method = model.PaymentMethod(method)
	return &wtx, nil
}
