package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

const tradeColumns = `id, user_id, symbol_id, ticker, direction, stake, start_price, start_at, end_at, status, end_price, pnl`

type tradeRepository struct {
	pool *pgxpool.Pool
}

// NewTradeRepository creates a new PostgreSQL trade repository
func NewTradeRepository(pool *pgxpool.Pool) repository.TradeRepository {
	return &tradeRepository{pool: pool}
}

func (r *tradeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE user_id = $1
		ORDER BY start_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

func (r *tradeRepository) ListRecent(ctx context.Context, limit int) ([]*model.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY start_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *tradeRepository) ListExpiredOpen(ctx context.Context, userID uuid.UUID, now time.Time) ([]*model.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE status = 'OPEN' AND end_at <= $1 AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY end_at ASC
	`
	var filter *uuid.UUID
	if userID != uuid.Nil {
		filter = &userID
	}
	return r.list(ctx, query, now, filter)
}

func (r *tradeRepository) list(ctx context.Context, query string, args ...any) ([]*model.Trade, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*model.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	return trades, nil
}

func scanTrade(row pgx.Row) (*model.Trade, error) {
	var (
		trade     model.Trade
		direction string
		status    string
		pnl       decimal.NullDecimal
	)
	err := row.Scan(
		&trade.ID, &trade.UserID, &trade.InstrumentID, &trade.Ticker, &direction,
		&trade.Stake, &trade.StartPrice, &trade.StartAt, &trade.EndAt, &status,
		&trade.EndPrice, &pnl,
	)
	if err != nil {
		return nil, err
	}
	trade.Direction = model.Direction(direction)
	trade.Status = model.TradeStatus(status)
	if pnl.Valid {
		trade.PnL = &pnl.Decimal
	}
	return &trade, nil
}
