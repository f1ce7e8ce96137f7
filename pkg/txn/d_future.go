package txn

import (
	"context"
	"sync/atomic"
)

// Future is a single-assignment result cell. The worker resolves it exactly
// once; any number of callers may wait on it.
type Future[T any] struct {
	resolved atomic.Bool
	doneCh   chan struct{}
	val      T
	err      error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{doneCh: make(chan struct{})}
}

func (f *Future[T]) resolve(val T) {
	f.complete(val, nil)
}

func (f *Future[T]) fail(err error) {
	var zero T
	f.complete(zero, err)
}

func (f *Future[T]) complete(val T, err error) {
	if !f.resolved.CompareAndSwap(false, true) {
		panic(FutureResolvedErr)
	}
	f.val = val
	f.err = err
	close(f.doneCh)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.doneCh
}

// Await blocks until the future is resolved or ctx is done. Giving up on the
// wait does not cancel the command.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.doneCh:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) Wait() (T, error) {
	return f.Await(context.Background())
}
