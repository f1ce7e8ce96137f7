package txn

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// CollectPolicy decides when the collector runs. The algorithm is the same
// under both policies.
type CollectPolicy int

const (
	// CollectEager runs a pass after every transaction termination.
	CollectEager CollectPolicy = iota
	// CollectDeferred runs a pass only on Collect or memory pressure.
	CollectDeferred
)

func (p CollectPolicy) String() string {
	if p == CollectDeferred {
		return "deferred"
	}
	return "eager"
}

type options struct {
	name             string
	logger           *zap.Logger
	meter            metric.Meter
	policy           CollectPolicy
	strictInvariants bool
	pressureInterval time.Duration
}

type Option func(*options)

func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

func WithCollectPolicy(policy CollectPolicy) Option {
	return func(o *options) { o.policy = policy }
}

// WithStrictInvariants controls whether an internal invariant violation
// panics (the default) or is logged and handled by the guarded path.
func WithStrictInvariants(strict bool) Option {
	return func(o *options) { o.strictInvariants = strict }
}

// WithPressureInterval sets the minimum spacing between collector passes
// triggered through OnMemoryPressure.
func WithPressureInterval(d time.Duration) Option {
	return func(o *options) { o.pressureInterval = d }
}
