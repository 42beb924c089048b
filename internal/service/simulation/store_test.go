package simulation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// fakeClock is a settable wall clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(unix int64) *fakeClock {
	return &fakeClock{now: time.Unix(unix, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorded struct {
	key     Key
	candles []model.Candle
	manual  bool
}

type captureRecorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *captureRecorder) Record(key Key, candles []model.Candle, manual bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorded{key: key, candles: candles, manual: manual})
}

var btc1m = Key{Ticker: "BTC/USD", Timeframe: model.Timeframe1m}

// base is aligned to every supported timeframe
const base int64 = 1_700_006_400

func newTestStore(clock *fakeClock, opts ...Option) *Store {
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewStore(NewSource(42), opts...)
}

func assertContiguous(t *testing.T, candles []model.Candle, interval int64) {
	t.Helper()
	for i := 1; i < len(candles); i++ {
		assert.Equal(t, interval, candles[i].Time-candles[i-1].Time, "gap at index %d", i)
	}
	for _, c := range candles {
		assert.GreaterOrEqual(t, c.Low, 1.0)
		assert.GreaterOrEqual(t, c.Close, 1.0)
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.LessOrEqual(t, c.Low, c.Close)
	}
}

func TestAlign(t *testing.T) {
	intervals := []int64{60, 300, 900, 3600, 86400}
	stamps := []int64{0, 59, 60, 61, 1_700_000_123, base, base + 86399}

	for _, i := range intervals {
		for _, ts := range stamps {
			a := Align(ts, i)
			assert.Equal(t, a, Align(a, i), "idempotent for t=%d i=%d", ts, i)
			assert.LessOrEqual(t, a, ts)
			assert.Less(t, ts, a+i)
			assert.Zero(t, a%i)
		}
	}
}

func TestStore_GetOrInit(t *testing.T) {
	clock := newFakeClock(base + 17)
	store := newTestStore(clock)

	st := store.GetOrInit(btc1m, 42000)
	again := store.GetOrInit(btc1m, 1)

	assert.Same(t, st, again, "second call must not re-seed")

	snap := store.Snapshot(st, HistoryCap)
	require.Len(t, snap.Candles, SeedCandles)
	assert.Equal(t, base, snap.LastTime)
	assert.Equal(t, base, snap.Candles[len(snap.Candles)-1].Time)
	assert.Equal(t, snap.Candles[len(snap.Candles)-1].Close, snap.LastClose)
	assert.InDelta(t, 42000*DefaultVolatilityRatio, snap.Volatility, 1e-9)
	assert.Zero(t, snap.Drift)
	assert.False(t, snap.Paused)
	assertContiguous(t, snap.Candles, 60)
}

func TestStore_GetOrInitConcurrent(t *testing.T) {
	store := newTestStore(newFakeClock(base))

	var wg sync.WaitGroup
	states := make([]*State, 16)
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = store.GetOrInit(btc1m, 42000)
		}(i)
	}
	wg.Wait()

	for _, st := range states {
		assert.Same(t, states[0], st)
	}
	assert.Len(t, store.Keys(), 1)
}

func TestStore_Advance(t *testing.T) {
	clock := newFakeClock(base)
	store := newTestStore(clock)
	st := store.GetOrInit(btc1m, 42000)

	assert.Zero(t, store.Advance(st), "same boundary")

	clock.Add(59 * time.Second)
	assert.Zero(t, store.Advance(st), "still inside the boundary")

	clock.Add(1 * time.Second)
	assert.Equal(t, 1, store.Advance(st))
	assert.Zero(t, store.Advance(st), "idempotent within a boundary")

	clock.Add(5 * time.Minute)
	assert.Equal(t, 5, store.Advance(st))

	snap := store.Snapshot(st, HistoryCap)
	assert.Len(t, snap.Candles, SeedCandles+6)
	assert.Equal(t, base+6*60, snap.LastTime)
	assertContiguous(t, snap.Candles, 60)

	for i := SeedCandles; i < len(snap.Candles); i++ {
		assert.Equal(t, snap.Candles[i-1].Close, snap.Candles[i].Open, "open follows previous close")
	}
}

func TestStore_AdvanceCapsHistory(t *testing.T) {
	clock := newFakeClock(base)
	store := newTestStore(clock)
	st := store.GetOrInit(Key{Ticker: "ETH/USD", Timeframe: model.Timeframe5m}, 2200)

	clock.Add(2500 * 5 * time.Minute)
	assert.Equal(t, 2500, store.Advance(st))

	snap := store.Snapshot(st, HistoryCap+50)
	assert.Len(t, snap.Candles, HistoryCap)
	assert.Equal(t, base+2500*300, snap.LastTime)
	assertContiguous(t, snap.Candles, 300)

	for step := 0; step < 20; step++ {
		clock.Add(5 * time.Minute)
		store.Advance(st)
		assert.LessOrEqual(t, len(store.Window(st, HistoryCap+1)), HistoryCap)
	}
}

func TestStore_Window(t *testing.T) {
	store := newTestStore(newFakeClock(base))
	st := store.GetOrInit(btc1m, 42000)

	all := store.Window(st, HistoryCap)
	w := store.Window(st, 20)

	require.Len(t, w, 20)
	assert.Equal(t, all[len(all)-20:], w)
	assert.Len(t, store.Window(st, 500), SeedCandles)

	w[0].Close = -1
	assert.NotEqual(t, -1.0, store.Window(st, 20)[0].Close, "window is a copy")
}

func TestStore_PauseCatchUp(t *testing.T) {
	clock := newFakeClock(base)
	store := newTestStore(clock)
	st := store.GetOrInit(btc1m, 42000)

	assert.True(t, store.ToggleAuto(st))

	clock.Add(10 * time.Minute)
	assert.Zero(t, store.Advance(st), "paused state never advances")

	assert.False(t, store.ToggleAuto(st))
	assert.Len(t, store.Window(st, HistoryCap), SeedCandles, "resume does not fill gaps by itself")

	assert.Equal(t, 10, store.Advance(st))
	assert.Zero(t, store.Advance(st))
	assertContiguous(t, store.Window(st, HistoryCap), 60)
}

func TestStore_ManualTick(t *testing.T) {
	clock := newFakeClock(base)
	rec := &captureRecorder{}
	store := newTestStore(clock, WithRecorder(rec))
	st := store.GetOrInit(btc1m, 42000)

	before := store.Snapshot(st, 1)
	up := store.ManualTick(st, model.DirectionUp)

	assert.Equal(t, base+60, up.Time, "tick lands one interval ahead of wall clock")
	assert.Equal(t, before.LastClose, up.Open)
	assert.Greater(t, up.Close, up.Open)

	down := store.ManualTick(st, model.DirectionDown)
	assert.Equal(t, base+120, down.Time)
	assert.Less(t, down.Close, down.Open)

	clock.Add(2 * time.Minute)
	assert.Zero(t, store.Advance(st), "automatic advance waits for wall clock to catch up")

	clock.Add(1 * time.Minute)
	assert.Equal(t, 1, store.Advance(st))
	assertContiguous(t, store.Window(st, HistoryCap), 60)

	require.Len(t, rec.calls, 3)
	assert.True(t, rec.calls[0].manual)
	assert.True(t, rec.calls[1].manual)
	assert.False(t, rec.calls[2].manual)
	assert.Equal(t, btc1m, rec.calls[2].key)
}

func TestStore_ManualTickZeroVolatility(t *testing.T) {
	store := newTestStore(newFakeClock(base))
	st := store.GetOrInit(btc1m, 42000)

	zero := 0.0
	store.SetParams(st, nil, &zero)
	c := store.ManualTick(st, model.DirectionUp)

	assert.GreaterOrEqual(t, c.Close-c.Open, float64(tickFallbackVolatility))
	assert.LessOrEqual(t, c.Close-c.Open, float64(tickFallbackVolatility)*1.5+1)
}

func TestStore_SetParams(t *testing.T) {
	clock := newFakeClock(base)
	store := newTestStore(clock)
	st := store.GetOrInit(btc1m, 42000)

	drift := 500.0
	snap := store.SetParams(st, &drift, nil)
	assert.Equal(t, 500.0, snap.Drift)
	assert.InDelta(t, 63.0, snap.Volatility, 1e-9)

	negative := -3.0
	snap = store.SetParams(st, nil, &negative)
	assert.Equal(t, 500.0, snap.Drift)
	assert.Equal(t, -3.0, snap.Volatility, "volatility is not clamped")

	zero := 0.0
	store.SetParams(st, nil, &zero)
	start := store.Snapshot(st, 0).LastClose
	clock.Add(3 * time.Minute)
	require.Equal(t, 3, store.Advance(st))

	w := store.Window(st, 3)
	for i, c := range w {
		assert.Equal(t, start+drift*float64(i+1), c.Close, "zero volatility moves by drift only")
	}
}

func TestStore_Nudge(t *testing.T) {
	store := newTestStore(newFakeClock(base))
	st := store.GetOrInit(Key{Ticker: "SOL/USD", Timeframe: model.Timeframe1h}, 95)

	last := store.Snapshot(st, 0).LastClose
	assert.Equal(t, last+DefaultNudge, store.Nudge(st, model.DirectionUp, DefaultNudge))
	assert.Equal(t, 1.0, store.Nudge(st, model.DirectionDown, 1e9), "floored at 1")
	assert.Len(t, store.Window(st, HistoryCap), SeedCandles, "nudge appends nothing")
}

func TestStore_ConcurrentAccess(t *testing.T) {
	clock := newFakeClock(base)
	store := newTestStore(clock)
	st := store.GetOrInit(btc1m, 42000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			store.Advance(st)
		}()
		go func() {
			defer wg.Done()
			store.ManualTick(st, model.DirectionUp)
		}()
		go func() {
			defer wg.Done()
			clock.Add(time.Minute)
			store.Window(st, 50)
		}()
	}
	wg.Wait()

	candles := store.Window(st, HistoryCap)
	for i := 1; i < len(candles); i++ {
		assert.Greater(t, candles[i].Time, candles[i-1].Time)
	}
}

func TestStartPrice(t *testing.T) {
	assert.Equal(t, 42000.0, StartPrice("BTC/USD"))
	assert.Equal(t, 2200.0, StartPrice("ETH/USD"))
	assert.Equal(t, 100.0, StartPrice("DOGE/USD"))
}
