package settlement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sweeper periodically settles expired trades of all users. The trade list
// read path keeps settling on its own; the sweeper only shortens the delay.
type Sweeper struct {
	engine    *Engine
	interval  time.Duration
	logger    *slog.Logger
	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(engine *Engine, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		engine:   engine,
		interval: interval,
		logger:   logger.With("component", "settlement_sweeper"),
	}
}

// Start starts the sweep loop
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	s.logger.Info("settlement sweeper started", "interval", s.interval.String())
	go s.run(ctx, s.stopChan, s.done)
}

// Stop stops the sweep loop and waits for an in-flight pass to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()

	<-done
	s.logger.Info("settlement sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	res, err := s.engine.SettleExpired(ctx, uuid.Nil)
	if err != nil {
		s.logger.Error("settlement sweep failed", "error", err)
		return
	}
	if res.Settled > 0 || res.Skipped > 0 {
		s.logger.Info("settlement sweep", "settled", res.Settled, "skipped", res.Skipped)
	}
}
