package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// InstrumentRepository defines methods for instrument data access
type InstrumentRepository interface {
	// Ensure inserts the instrument when its ticker is new. For an existing
	// ticker only the name is refreshed; the stored ID and last price are
	// kept and copied back into instrument.
	Ensure(ctx context.Context, instrument *model.Instrument) error
	List(ctx context.Context) ([]*model.Instrument, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Instrument, error)
	GetByTicker(ctx context.Context, ticker string) (*model.Instrument, error)
	// ShiftPrice atomically adds delta to the last price, clamped to [min, max]
	ShiftPrice(ctx context.Context, ticker string, delta, min, max float64) (*model.Instrument, error)
}
