package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the side of a binary bet
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// TradeStatus represents the lifecycle state of a trade
type TradeStatus string

const (
	TradeStatusOpen    TradeStatus = "OPEN"
	TradeStatusSettled TradeStatus = "SETTLED"
)

// PayoutMultiplier is applied to the stake of a winning trade
var PayoutMultiplier = decimal.NewFromFloat(1.8)

// Trade represents a timed directional stake against an instrument
type Trade struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	UserID       uuid.UUID        `json:"-" db:"user_id"`
	InstrumentID uuid.UUID        `json:"-" db:"symbol_id"`
	Ticker       string           `json:"ticker" db:"ticker"`
	Direction    Direction        `json:"direction" db:"direction"`
	Stake        decimal.Decimal  `json:"stake" db:"stake"`
	StartPrice   float64          `json:"startPrice" db:"start_price"`
	StartAt      time.Time        `json:"startAt" db:"start_at"`
	EndAt        time.Time        `json:"endAt" db:"end_at"`
	Status       TradeStatus      `json:"status" db:"status"`
	EndPrice     *float64         `json:"endPrice" db:"end_price"` // Null until settled
	PnL          *decimal.Decimal `json:"pnl" db:"pnl"`            // Null until settled
}

// NewTrade opens a trade at the instrument's current price
func NewTrade(userID uuid.UUID, instrument *Instrument, direction Direction, stake decimal.Decimal, duration time.Duration) *Trade {
	now := time.Now()
	return &Trade{
		ID:           uuid.New(),
		UserID:       userID,
		InstrumentID: instrument.ID,
		Ticker:       instrument.Ticker,
		Direction:    direction,
		Stake:        stake,
		StartPrice:   instrument.LastPrice,
		StartAt:      now,
		EndAt:        now.Add(duration),
		Status:       TradeStatusOpen,
	}
}

// IsOpen checks if the trade still awaits settlement
func (t *Trade) IsOpen() bool {
	return t.Status == TradeStatusOpen
}

// IsExpired reports whether the trade can be settled at now
func (t *Trade) IsExpired(now time.Time) bool {
	return !t.EndAt.After(now)
}

// Outcome is the resolved result of a trade at a given end price
type Outcome struct {
	EndPrice float64
	Win      bool
	Payout   decimal.Decimal
	PnL      decimal.Decimal
}

// Resolve computes the outcome of the trade against endPrice. A flat close
// loses in both directions.
func (t *Trade) Resolve(endPrice float64) Outcome {
	var win bool
	switch t.Direction {
	case DirectionUp:
		win = endPrice > t.StartPrice
	case DirectionDown:
		win = endPrice < t.StartPrice
	}

	payout := decimal.Zero
	if win {
		payout = t.Stake.Mul(PayoutMultiplier).Round(0)
	}

	return Outcome{
		EndPrice: endPrice,
		Win:      win,
		Payout:   payout,
		PnL:      payout.Sub(t.Stake),
	}
}
