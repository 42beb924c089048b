package simulation

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sungminna/options-sandbox/internal/domain/model"
)

const (
	// HistoryCap is the maximum number of candles kept per state
	HistoryCap = 1000
	// SeedCandles is the number of candles generated for a new state
	SeedCandles = 101
	// DefaultVolatilityRatio scales the start price into the default volatility
	DefaultVolatilityRatio = 0.0015

	wickRatio = 0.6
)

// Key identifies one simulated series
type Key struct {
	Ticker    string
	Timeframe model.Timeframe
}

func (k Key) String() string {
	return k.Ticker + ":" + string(k.Timeframe)
}

// Recorder receives every candle appended to a state, in order
type Recorder interface {
	Record(key Key, candles []model.Candle, manual bool)
}

// State is the mutable simulation of one key. All fields are guarded by mu.
type State struct {
	mu sync.Mutex

	key        Key
	interval   int64
	lastTime   int64
	lastClose  float64
	drift      float64
	volatility float64
	paused     bool
	history    []model.Candle
}

// Key returns the key the state was created for
func (s *State) Key() Key {
	return s.key
}

// Snapshot is a consistent copy of a state
type Snapshot struct {
	Key        Key
	LastTime   int64
	LastClose  float64
	Drift      float64
	Volatility float64
	Paused     bool
	Candles    []model.Candle
}

// Store owns the per-key simulation states of the process
type Store struct {
	mu       sync.RWMutex
	states   map[Key]*State
	src      Source
	clock    Clock
	recorder Recorder
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the wall clock
func WithClock(clock Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithRecorder registers a sink for appended candles
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// NewStore creates an empty store drawing noise from src
func NewStore(src Source, opts ...Option) *Store {
	s := &Store{
		states: make(map[Key]*State),
		src:    Locked(src),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartPrice is the seed price used for a ticker's first simulation
func StartPrice(ticker string) float64 {
	switch {
	case strings.Contains(ticker, "BTC"):
		return 42000
	case strings.Contains(ticker, "ETH"):
		return 2200
	default:
		return 100
	}
}

// Get returns the state for key if it exists
func (s *Store) Get(key Key) (*State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	return st, ok
}

// GetOrInit returns the state for key, seeding it with SeedCandles candles
// ending at the current aligned boundary on first access. The timeframe
// must be valid.
func (s *Store) GetOrInit(key Key, startPrice float64) *State {
	if st, ok := s.Get(key); ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[key]; ok {
		return st
	}

	interval, _ := key.Timeframe.Seconds()
	st := s.seed(key, interval, startPrice)
	s.states[key] = st
	return st
}

func (s *Store) seed(key Key, interval int64, startPrice float64) *State {
	alignedNow := Align(s.clock().Unix(), interval)
	vol := startPrice * DefaultVolatilityRatio

	st := &State{
		key:        key,
		interval:   interval,
		volatility: vol,
		history:    make([]model.Candle, 0, SeedCandles),
	}

	prev := startPrice
	for i := int64(SeedCandles - 1); i >= 0; i-- {
		open := prev
		close := math.Max(1, math.Round(open+(s.src.Float64()-0.5)*vol))
		high := math.Max(open, close) + s.src.Float64()*vol*0.5
		low := math.Max(1, math.Min(open, close)-s.src.Float64()*vol*0.5)

		st.history = append(st.history, model.Candle{
			Time:  alignedNow - i*interval,
			Open:  open,
			High:  high,
			Low:   low,
			Close: close,
		})
		prev = close
	}
	st.lastClose = prev
	st.lastTime = alignedNow

	return st
}

// Advance appends one candle for every aligned boundary between the state's
// last candle and now. It returns the number of candles appended.
func (s *Store) Advance(st *State) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.paused {
		return 0
	}

	alignedNow := Align(s.clock().Unix(), st.interval)
	if alignedNow <= st.lastTime {
		return 0
	}

	var appended []model.Candle
	for t := st.lastTime + st.interval; t <= alignedNow; t += st.interval {
		move := st.drift + Gaussian(s.src)*st.volatility
		open := st.lastClose
		close := math.Max(1, math.Round(open+move))
		high := math.Max(open, close) + math.Round(math.Abs(Gaussian(s.src))*st.volatility*wickRatio)
		low := math.Max(1, math.Min(open, close)-math.Round(math.Abs(Gaussian(s.src))*st.volatility*wickRatio))

		c := model.Candle{Time: t, Open: open, High: high, Low: low, Close: close}
		st.append(c)
		appended = append(appended, c)
	}

	s.record(st.key, appended, false)
	return len(appended)
}

// Window returns the most recent count candles, oldest first
func (s *Store) Window(st *State, count int) []model.Candle {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.window(count)
}

// Snapshot returns a copy of the state with its last count candles
func (s *Store) Snapshot(st *State, count int) Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(count)
}

// Keys lists the keys that have been initialised
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.states))
	for k := range s.states {
		keys = append(keys, k)
	}
	return keys
}

func (s *Store) record(key Key, candles []model.Candle, manual bool) {
	if s.recorder == nil || len(candles) == 0 {
		return
	}
	s.recorder.Record(key, candles, manual)
}

// append must be called with st.mu held
func (st *State) append(c model.Candle) {
	st.history = append(st.history, c)
	st.lastClose = c.Close
	st.lastTime = c.Time
	if len(st.history) > HistoryCap {
		st.history = st.history[len(st.history)-HistoryCap:]
	}
}

func (st *State) window(count int) []model.Candle {
	if count > len(st.history) {
		count = len(st.history)
	}
	if count < 0 {
		count = 0
	}
	out := make([]model.Candle, count)
	copy(out, st.history[len(st.history)-count:])
	return out
}

func (st *State) snapshot(count int) Snapshot {
	return Snapshot{
		Key:        st.key,
		LastTime:   st.lastTime,
		LastClose:  st.lastClose,
		Drift:      st.drift,
		Volatility: st.volatility,
		Paused:     st.paused,
		Candles:    st.window(count),
	}
}
