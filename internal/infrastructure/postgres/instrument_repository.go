package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

const instrumentColumns = `id, ticker, name, last, updated_at`

type instrumentRepository struct {
	pool *pgxpool.Pool
}

// NewInstrumentRepository creates a new PostgreSQL instrument repository
func NewInstrumentRepository(pool *pgxpool.Pool) repository.InstrumentRepository {
	return &instrumentRepository{pool: pool}
}

// Ensure never overwrites last: the price only moves through ShiftPrice
func (r *instrumentRepository) Ensure(ctx context.Context, instrument *model.Instrument) error {
	query := `
		INSERT INTO symbols (id, ticker, name, last, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticker) DO UPDATE
		SET name = EXCLUDED.name
		RETURNING id, last, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		instrument.ID, instrument.Ticker, instrument.Name, instrument.LastPrice, instrument.UpdatedAt,
	).Scan(&instrument.ID, &instrument.LastPrice, &instrument.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to ensure instrument: %w", err)
	}
	return nil
}

func (r *instrumentRepository) List(ctx context.Context) ([]*model.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM symbols ORDER BY ticker ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()

	var instruments []*model.Instrument
	for rows.Next() {
		instrument, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, instrument)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return instruments, nil
}

func (r *instrumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM symbols WHERE id = $1`
	return r.get(ctx, query, id, "instrument not found")
}

func (r *instrumentRepository) GetByTicker(ctx context.Context, ticker string) (*model.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM symbols WHERE ticker = $1`
	return r.get(ctx, query, ticker, "unknown ticker")
}

// ShiftPrice applies the delta and clamp in a single statement so
// concurrent walkers never lose an update
func (r *instrumentRepository) ShiftPrice(ctx context.Context, ticker string, delta, min, max float64) (*model.Instrument, error) {
	query := `
		UPDATE symbols
		SET last = LEAST(GREATEST(last + $2, $3), $4), updated_at = now()
		WHERE ticker = $1
		RETURNING ` + instrumentColumns
	return r.get(ctx, query, ticker, "unknown ticker", delta, min, max)
}

func (r *instrumentRepository) get(ctx context.Context, query string, key any, notFound string, extra ...any) (*model.Instrument, error) {
	args := append([]any{key}, extra...)
	instrument, err := scanInstrument(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(notFound)
		}
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}
	return instrument, nil
}

func scanInstrument(row pgx.Row) (*model.Instrument, error) {
	var instrument model.Instrument
	err := row.Scan(&instrument.ID, &instrument.Ticker, &instrument.Name, &instrument.LastPrice, &instrument.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &instrument, nil
}
