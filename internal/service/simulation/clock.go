package simulation

import "time"

// Align maps a unix-seconds timestamp to the start of its candle interval
func Align(nowSeconds, intervalSeconds int64) int64 {
	return nowSeconds - nowSeconds%intervalSeconds
}

// Clock returns the current wall-clock time
type Clock func() time.Time
