package txn

import (
	"time"

	"golang.org/x/time/rate"
)

const defaultPressureInterval = time.Second

func newPressureLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// OnMemoryPressure is the hook for an external low-memory signal. It
// enqueues one collector pass without waiting for it, at most once per
// pressure interval, and reports whether a pass was scheduled.
func (e *Engine) OnMemoryPressure() bool {
	if e.stopped.Load() || !e.pressure.Allow() {
		return false
	}
	e.logger.Debug("memory pressure, scheduling collection")
	e.Collect()
	return true
}
