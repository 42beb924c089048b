package market

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/infrastructure/memory"
	"github.com/sungminna/options-sandbox/internal/service/simulation"
)

// constSource always draws the same value
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

const base = 1_700_006_400 // aligned to every timeframe

func newTestService(t *testing.T, walk simulation.Source) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	for _, in := range model.DefaultInstruments() {
		require.NoError(t, store.Instruments().Ensure(context.Background(), in))
	}

	now := time.Unix(base+30, 0)
	sim := simulation.NewStore(simulation.NewSource(7), simulation.WithClock(func() time.Time { return now }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store.Instruments(), sim, walk, logger), store
}

func TestService_ListSymbols(t *testing.T) {
	svc, _ := newTestService(t, constSource(0.5))

	symbols, err := svc.ListSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 4)
	assert.Equal(t, "BTC/USD", symbols[0].Ticker)
	assert.Equal(t, "SOL/USD", symbols[3].Ticker)
}

func TestService_WalkPrice(t *testing.T) {
	tests := []struct {
		name   string
		draw   float64
		ticker string
		want   float64
	}{
		{name: "step up", draw: 0.99, ticker: "BTC/USD", want: 42059},
		{name: "step down", draw: 0, ticker: "BTC/USD", want: 41940},
		{name: "default ticker", draw: 0.5, ticker: "", want: 42000},
		{name: "inside bounds", draw: 0.5, ticker: "ETH/USD", want: 2200},
		{name: "low price lifted to floor", draw: 0.5, ticker: "DOGE/USD", want: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, constSource(tt.draw))

			quote, err := svc.WalkPrice(context.Background(), tt.ticker)
			require.NoError(t, err)
			assert.Equal(t, tt.want, quote.Price)
			assert.NotZero(t, quote.Ts)
		})
	}
}

func TestService_WalkPricePersists(t *testing.T) {
	svc, store := newTestService(t, constSource(0.99))

	_, err := svc.WalkPrice(context.Background(), "BTC/USD")
	require.NoError(t, err)

	btc, err := store.Instruments().GetByTicker(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, 42059.0, btc.LastPrice)

	_, err = svc.WalkPrice(context.Background(), "XRP/USD")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Candles(t *testing.T) {
	svc, _ := newTestService(t, constSource(0.5))
	ctx := context.Background()

	tests := []struct {
		name  string
		query CandlesQuery
		want  int
	}{
		{name: "default count", query: CandlesQuery{}, want: DefaultCount},
		{name: "clamped up", query: CandlesQuery{Count: 5}, want: MinCount},
		{name: "clamped down to available history", query: CandlesQuery{Count: 1000}, want: simulation.SeedCandles},
		{name: "explicit", query: CandlesQuery{Ticker: "ETH/USD", Timeframe: model.Timeframe5m, Count: 30}, want: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Candles(ctx, tt.query)
			require.NoError(t, err)
			require.Len(t, resp.Candles, tt.want)
			assert.False(t, resp.IsPaused)
			assert.Equal(t, resp.Candles[len(resp.Candles)-1].Close, resp.LastClose)
		})
	}

	_, err := svc.Candles(ctx, CandlesQuery{Timeframe: "2m"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestService_UnknownTickerCreatesNoSeries(t *testing.T) {
	svc, _ := newTestService(t, constSource(0.5))
	ctx := context.Background()

	_, err := svc.Candles(ctx, CandlesQuery{Ticker: "BTC/USD"})
	require.NoError(t, err)
	require.Len(t, svc.sim.Keys(), 1)

	for i := range 50 {
		ticker := fmt.Sprintf("JUNK%d/USD", i)
		_, err = svc.Candles(ctx, CandlesQuery{Ticker: ticker})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = svc.Command(ctx, CmdTick, &CommandRequest{Ticker: ticker})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
	assert.Len(t, svc.sim.Keys(), 1)
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, 80, ClampCount(0))
	assert.Equal(t, 20, ClampCount(-3))
	assert.Equal(t, 150, ClampCount(150))
	assert.Equal(t, 300, ClampCount(301))
}

func TestService_Command(t *testing.T) {
	svc, _ := newTestService(t, constSource(0.5))
	ctx := context.Background()
	req := &CommandRequest{Ticker: "BTC/USD", Timeframe: model.Timeframe1m}

	before, err := svc.Candles(ctx, CandlesQuery{Ticker: "BTC/USD"})
	require.NoError(t, err)
	last := before.Candles[len(before.Candles)-1]

	resp, err := svc.Command(ctx, CmdToggleAuto, req)
	require.NoError(t, err)
	require.NotNil(t, resp.IsPaused)
	assert.True(t, *resp.IsPaused)

	resp, err = svc.Command(ctx, CmdTick, &CommandRequest{Ticker: "BTC/USD", Dir: model.DirectionUp})
	require.NoError(t, err)
	require.NotNil(t, resp.Candle)
	assert.Equal(t, last.Time+60, resp.Candle.Time)
	assert.Greater(t, resp.Candle.Close, last.Close)

	drift, vol := 5.0, 0.0
	resp, err = svc.Command(ctx, CmdSet, &CommandRequest{Ticker: "BTC/USD", Drift: &drift, Vol: &vol})
	require.NoError(t, err)
	require.NotNil(t, resp.State)
	assert.Equal(t, 5.0, resp.State.Drift)
	assert.Equal(t, 0.0, resp.State.Vol)
	assert.True(t, resp.State.IsPaused)

	resp, err = svc.Command(ctx, CmdNudge, &CommandRequest{Ticker: "BTC/USD", Dir: model.DirectionDown})
	require.NoError(t, err)
	require.NotNil(t, resp.LastClose)
	assert.Nil(t, resp.State)

	after, err := svc.Candles(ctx, CandlesQuery{Ticker: "BTC/USD"})
	require.NoError(t, err)
	assert.True(t, after.IsPaused)
	assert.Equal(t, *resp.LastClose, after.LastClose)

	_, err = svc.Command(ctx, "explode", req)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Command(ctx, CmdTick, &CommandRequest{Timeframe: "7m"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestService_Watch(t *testing.T) {
	svc, _ := newTestService(t, constSource(0.5))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := svc.Watch(ctx, CandlesQuery{Ticker: "BTC/USD"}, 5*time.Millisecond)
	require.NoError(t, err)

	first := <-updates
	require.NotNil(t, first)

	_, err = svc.Command(ctx, CmdTick, &CommandRequest{Ticker: "BTC/USD"})
	require.NoError(t, err)

	select {
	case next := <-updates:
		assert.NotEqual(t, first.LastClose, next.LastClose)
	case <-time.After(time.Second):
		t.Fatal("no update after manual tick")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-updates
		return !open
	}, time.Second, 5*time.Millisecond)
}
