// Package memwatch turns heap growth into a low-memory signal.
package memwatch

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const defaultInterval = 500 * time.Millisecond

// Watcher samples the heap on a ticker and calls Hook whenever the sampled
// size is at or above Threshold. Hook runs on the watcher goroutine and
// must not block.
type Watcher struct {
	Interval  time.Duration
	Threshold uint64
	Hook      func() bool
	Logger    *zap.Logger

	// sample defaults to the live HeapAlloc; tests replace it.
	sample func() uint64
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Run blocks until ctx is done. A zero Threshold disables the watcher.
func (w *Watcher) Run(ctx context.Context) {
	if w.Threshold == 0 || w.Hook == nil {
		return
	}
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	sample := w.sample
	if sample == nil {
		sample = heapAlloc
	}
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			heap := sample()
			if heap < w.Threshold {
				continue
			}
			fired := w.Hook()
			logger.Debug("memory pressure",
				zap.Uint64("heap_alloc", heap),
				zap.Uint64("threshold", w.Threshold),
				zap.Bool("signalled", fired))
		}
	}
}
