package simulation

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Source yields uniform draws in [0, 1)
type Source interface {
	Float64() float64
}

// NewSource returns a PCG-backed source. A zero seed seeds from the clock.
func NewSource(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// lockedSource makes a Source safe for concurrent states
type lockedSource struct {
	mu  sync.Mutex
	src Source
}

// Locked wraps src so it can be shared between goroutines. Wrapping an
// already locked source returns it unchanged.
func Locked(src Source) Source {
	if ls, ok := src.(*lockedSource); ok {
		return ls
	}
	return &lockedSource{src: src}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

// openUnit draws from (0, 1)
func openUnit(src Source) float64 {
	u := src.Float64()
	for u == 0 {
		u = src.Float64()
	}
	return u
}

// Gaussian returns a standard normal draw using the Box-Muller transform
func Gaussian(src Source) float64 {
	u := openUnit(src)
	v := openUnit(src)
	return math.Sqrt(-2.0*math.Log(u)) * math.Cos(2.0*math.Pi*v)
}
