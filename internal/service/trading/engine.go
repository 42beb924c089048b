package trading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
	"github.com/sungminna/options-sandbox/internal/service/settlement"
	"github.com/sungminna/options-sandbox/internal/service/wallet"
)

// HistoryLimit is the number of trades returned by ListTrades
const HistoryLimit = 50

// allowedDurations are the trade lengths in seconds
var allowedDurations = map[int]bool{60: true, 120: true, 180: true, 240: true}

// Engine handles trade placement and the settle-then-list read path
type Engine struct {
	trades      repository.TradeRepository
	instruments repository.InstrumentRepository
	ledger      *wallet.Ledger
	settlement  *settlement.Engine
	logger      *slog.Logger
}

// NewEngine creates a new trading engine
func NewEngine(
	trades repository.TradeRepository,
	instruments repository.InstrumentRepository,
	ledger *wallet.Ledger,
	settlementEngine *settlement.Engine,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		trades:      trades,
		instruments: instruments,
		ledger:      ledger,
		settlement:  settlementEngine,
		logger:      logger.With("component", "trading"),
	}
}

// PlaceTradeRequest represents a request to open a trade
type PlaceTradeRequest struct {
	Ticker      string          `json:"ticker" binding:"required"`
	Direction   model.Direction `json:"direction" binding:"required,oneof=UP DOWN"`
	Stake       decimal.Decimal `json:"stake"`
	DurationSec int             `json:"durationSec" binding:"required,oneof=60 120 180 240"`
}

// PlaceTradeResponse is returned after a trade is opened
type PlaceTradeResponse struct {
	OK      bool            `json:"ok"`
	TradeID uuid.UUID       `json:"tradeId"`
	Trade   *model.Trade    `json:"trade"`
	Balance decimal.Decimal `json:"balance"`
}

// PlaceTrade debits the stake and opens a trade at the instrument's last
// price in one atomic unit
func (e *Engine) PlaceTrade(ctx context.Context, userID uuid.UUID, req *PlaceTradeRequest) (*PlaceTradeResponse, error) {
	if err := validatePlace(req); err != nil {
		return nil, err
	}

	instrument, err := e.instruments.GetByTicker(ctx, req.Ticker)
	if err != nil {
		return nil, err
	}

	trade := model.NewTrade(userID, instrument, req.Direction, req.Stake, time.Duration(req.DurationSec)*time.Second)
	balance, err := e.ledger.Debit(ctx, userID, req.Stake, func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.CreateTrade(ctx, trade)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("trade placed",
		"trade_id", trade.ID,
		"user_id", userID,
		"ticker", trade.Ticker,
		"direction", trade.Direction,
		"stake", trade.Stake.String(),
		"start_price", trade.StartPrice,
		"end_at", trade.EndAt,
	)

	return &PlaceTradeResponse{OK: true, TradeID: trade.ID, Trade: trade, Balance: balance}, nil
}

func validatePlace(req *PlaceTradeRequest) error {
	if req.Ticker == "" {
		return apperr.InvalidInput("missing fields")
	}
	if req.Direction != model.DirectionUp && req.Direction != model.DirectionDown {
		return apperr.InvalidInput("bad direction")
	}
	if !req.Stake.IsPositive() {
		return apperr.InvalidInput("bad stake")
	}
	if !allowedDurations[req.DurationSec] {
		return apperr.InvalidInput("bad duration")
	}
	return nil
}

// ListTrades settles the user's expired trades and returns the latest ones
func (e *Engine) ListTrades(ctx context.Context, userID uuid.UUID) ([]*model.Trade, error) {
	if _, err := e.settlement.SettleExpired(ctx, userID); err != nil {
		return nil, err
	}

	trades, err := e.trades.ListByUser(ctx, userID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}
