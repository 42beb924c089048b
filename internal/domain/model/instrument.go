package model

import (
	"time"

	"github.com/google/uuid"
)

// Instrument is a tradable synthetic ticker with a server-maintained last price
type Instrument struct {
	ID        uuid.UUID `json:"-" db:"id"`
	Ticker    string    `json:"ticker" db:"ticker"` // e.g., "BTC/USD"
	Name      string    `json:"name" db:"name"`
	LastPrice float64   `json:"last" db:"last"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// NewInstrument creates a new instrument
func NewInstrument(ticker, name string, last float64) *Instrument {
	return &Instrument{
		ID:        uuid.New(),
		Ticker:    ticker,
		Name:      name,
		LastPrice: last,
		UpdatedAt: time.Now(),
	}
}

// DefaultInstruments is the seed set loaded at start-up
func DefaultInstruments() []*Instrument {
	return []*Instrument{
		NewInstrument("BTC/USD", "Bitcoin / USD", 42000),
		NewInstrument("ETH/USD", "Ethereum / USD", 2200),
		NewInstrument("SOL/USD", "Solana / USD", 95),
		NewInstrument("DOGE/USD", "Dogecoin / USD", 0.18),
	}
}
