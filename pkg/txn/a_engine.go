package txn

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Engine is the single-worker transaction engine. Callers talk to it only
// through commands; everything below the queue belongs to the worker.
type Engine struct {
	name    string
	logger  *zap.Logger
	policy  CollectPolicy
	strict  bool
	metrics *engineMetrics

	queue    *commandQueue
	started  atomic.Bool
	stopped  atomic.Bool
	stopCh   chan struct{}
	pressure *rate.Limiter

	// worker-owned
	store *MvStore
	table *TxnTable
}

func NewEngine(opts ...Option) *Engine {
	o := options{
		policy:           CollectEager,
		strictInvariants: true,
		pressureInterval: defaultPressureInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.meter == nil {
		o.meter = noop.NewMeterProvider().Meter("")
	}

	metrics, err := newEngineMetrics(o.meter)
	if err != nil {
		o.logger.Warn("engine metrics disabled", zap.Error(err))
		metrics, _ = newEngineMetrics(noop.NewMeterProvider().Meter(""))
	}

	return &Engine{
		name:     o.name,
		logger:   o.logger.With(zap.String("engine", o.name)),
		policy:   o.policy,
		strict:   o.strictInvariants,
		metrics:  metrics,
		queue:    newCommandQueue(),
		stopCh:   make(chan struct{}),
		pressure: newPressureLimiter(o.pressureInterval),
		store:    NewMVStore(),
		table:    NewTxnTable(),
	}
}

func (e *Engine) Name() string {
	return e.name
}

// NewTransaction returns an uninitialized transaction bound to e.
func (e *Engine) NewTransaction() *Txn {
	return &Txn{engine: e}
}

// Start runs the worker in its own goroutine.
func (e *Engine) Start() {
	go e.Run()
}

// Stopped is closed when the worker has exited.
func (e *Engine) Stopped() <-chan struct{} {
	return e.stopCh
}

// Collect requests one collector pass.
func (e *Engine) Collect() *Future[struct{}] {
	res := newFuture[struct{}]()
	e.enqueue(&request{typ: Collect, doneRes: res})
	return res
}

// Stats reports sizes of the worker-owned state.
func (e *Engine) Stats() *Future[EngineStats] {
	res := newFuture[EngineStats]()
	e.enqueue(&request{typ: Stats, statsRes: res})
	return res
}

// Shutdown stops the worker once every command queued ahead of it is served.
func (e *Engine) Shutdown() *Future[struct{}] {
	res := newFuture[struct{}]()
	e.enqueue(&request{typ: Shutdown, doneRes: res})
	return res
}

func (e *Engine) enqueue(req *request) {
	if !e.queue.push(req) {
		req.failWith(fmt.Errorf("%s %s: %w", e.name, req.typ, EngineStoppedErr))
	}
}

// invariant reports an engine bug. In strict mode it panics; otherwise it
// logs and lets the caller take its guarded path.
func (e *Engine) invariant(cond bool, msg string, fields ...zap.Field) bool {
	if cond {
		return true
	}
	if e.strict {
		panic(fmt.Errorf("%w: %s", InvariantViolationErr, msg))
	}
	e.logger.Error("invariant violated", append(fields, zap.String("check", msg))...)
	return false
}
