package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
	"github.com/sungminna/options-sandbox/internal/service/wallet"
)

// Engine settles expired trades against the instrument's last price
type Engine struct {
	trades      repository.TradeRepository
	instruments repository.InstrumentRepository
	ledger      *wallet.Ledger
	now         func() time.Time
	logger      *slog.Logger
}

// NewEngine creates a new settlement engine
func NewEngine(
	trades repository.TradeRepository,
	instruments repository.InstrumentRepository,
	ledger *wallet.Ledger,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		trades:      trades,
		instruments: instruments,
		ledger:      ledger,
		now:         time.Now,
		logger:      logger.With("component", "settlement"),
	}
}

// Result summarizes one settlement pass
type Result struct {
	Settled int
	Skipped int
}

// SettleExpired settles every OPEN trade of userID whose end time has
// passed. uuid.Nil settles all users. Each trade is its own atomic unit, so
// a trade already settled by a concurrent pass is skipped without payout.
func (e *Engine) SettleExpired(ctx context.Context, userID uuid.UUID) (Result, error) {
	var res Result

	now := e.now()
	expired, err := e.trades.ListExpiredOpen(ctx, userID, now)
	if err != nil {
		return res, fmt.Errorf("failed to list expired trades: %w", err)
	}

	prices := make(map[uuid.UUID]float64)
	for _, t := range expired {
		endPrice, ok := prices[t.InstrumentID]
		if !ok {
			instrument, err := e.instruments.GetByID(ctx, t.InstrumentID)
			if errors.Is(err, apperr.ErrNotFound) {
				e.logger.Warn("data integrity anomaly: trade references missing instrument",
					"trade_id", t.ID, "instrument_id", t.InstrumentID)
				res.Skipped++
				continue
			}
			if err != nil {
				return res, fmt.Errorf("failed to get instrument: %w", err)
			}
			endPrice = instrument.LastPrice
			prices[t.InstrumentID] = endPrice
		}

		settled, err := e.settle(ctx, t, endPrice, now)
		if err != nil {
			return res, err
		}
		if settled {
			res.Settled++
		} else {
			res.Skipped++
		}
	}

	return res, nil
}

func (e *Engine) settle(ctx context.Context, t *model.Trade, endPrice float64, now time.Time) (bool, error) {
	outcome := t.Resolve(endPrice)

	_, err := e.ledger.Credit(ctx, t.UserID, outcome.Payout, func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.SettleTrade(ctx, t.ID, outcome.EndPrice, outcome.PnL, now)
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrTradeNotOpen), errors.Is(err, apperr.ErrConflict):
		e.logger.Debug("trade settled elsewhere", "trade_id", t.ID)
		return false, nil
	default:
		return false, fmt.Errorf("failed to settle trade %s: %w", t.ID, err)
	}

	e.logger.Info("trade settled",
		"trade_id", t.ID,
		"user_id", t.UserID,
		"ticker", t.Ticker,
		"direction", t.Direction,
		"start_price", t.StartPrice,
		"end_price", outcome.EndPrice,
		"win", outcome.Win,
		"pnl", outcome.PnL.String(),
	)
	return true, nil
}
