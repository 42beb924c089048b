package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
	"github.com/sungminna/options-sandbox/internal/service/simulation"
)

// CandleArchiver buffers candles appended by the simulation and writes them
// to the archive in batches. It never blocks the simulation: when the
// buffer is full new candles are dropped and counted.
type CandleArchiver struct {
	archive    repository.CandleArchive
	interval   time.Duration
	bufferSize int
	logger     *slog.Logger

	bufMu   sync.Mutex
	buffer  []repository.ArchivedCandle
	dropped int

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

var _ simulation.Recorder = (*CandleArchiver)(nil)

// NewCandleArchiver creates a new candle archiver
func NewCandleArchiver(archive repository.CandleArchive, interval time.Duration, bufferSize int, logger *slog.Logger) *CandleArchiver {
	return &CandleArchiver{
		archive:    archive,
		interval:   interval,
		bufferSize: bufferSize,
		logger:     logger.With("component", "candle_archiver"),
	}
}

// Record queues candles for the next flush
func (a *CandleArchiver) Record(key simulation.Key, candles []model.Candle, manual bool) {
	a.bufMu.Lock()
	defer a.bufMu.Unlock()

	for _, c := range candles {
		if len(a.buffer) >= a.bufferSize {
			a.dropped++
			continue
		}
		a.buffer = append(a.buffer, repository.ArchivedCandle{
			Ticker:    key.Ticker,
			Timeframe: key.Timeframe,
			Candle:    c,
			Manual:    manual,
		})
	}
}

// Pending returns the number of buffered candles
func (a *CandleArchiver) Pending() int {
	a.bufMu.Lock()
	defer a.bufMu.Unlock()
	return len(a.buffer)
}

// Flush writes the buffered candles. A failed batch is put back in front of
// candles recorded meanwhile, as far as the buffer allows.
func (a *CandleArchiver) Flush(ctx context.Context) error {
	a.bufMu.Lock()
	batch := a.buffer
	a.buffer = nil
	dropped := a.dropped
	a.dropped = 0
	a.bufMu.Unlock()

	if dropped > 0 {
		a.logger.Warn("archive buffer full, candles dropped", "dropped", dropped)
	}
	if len(batch) == 0 {
		return nil
	}

	if err := a.archive.SaveCandles(ctx, batch); err != nil {
		a.requeue(batch)
		return err
	}

	a.logger.Debug("candles archived", "count", len(batch))
	return nil
}

func (a *CandleArchiver) requeue(batch []repository.ArchivedCandle) {
	a.bufMu.Lock()
	defer a.bufMu.Unlock()

	merged := append(batch, a.buffer...)
	if len(merged) > a.bufferSize {
		a.dropped += len(merged) - a.bufferSize
		merged = merged[:a.bufferSize]
	}
	a.buffer = merged
}

// Start starts the periodic flush loop
func (a *CandleArchiver) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isRunning {
		return
	}
	a.isRunning = true
	a.stopChan = make(chan struct{})
	a.done = make(chan struct{})

	a.logger.Info("candle archiver started", "interval", a.interval.String())
	go a.runPeriodic(ctx, a.stopChan, a.done)
}

// Stop stops the loop and flushes what is left
func (a *CandleArchiver) Stop(ctx context.Context) {
	a.mu.Lock()
	if !a.isRunning {
		a.mu.Unlock()
		return
	}
	close(a.stopChan)
	done := a.done
	a.isRunning = false
	a.mu.Unlock()

	<-done
	if err := a.Flush(ctx); err != nil {
		a.logger.Error("final archive flush failed", "error", err, "pending", a.Pending())
	}
	a.logger.Info("candle archiver stopped")
}

func (a *CandleArchiver) runPeriodic(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.logger.Error("archive flush failed", "error", err, "pending", a.Pending())
			}
		}
	}
}
