package txn

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// commandQueue is an unbounded FIFO with many producers and one consumer.
// It is the only structure in the engine guarded by a lock.
type commandQueue struct {
	sync.Mutex
	items  []*request
	wakeCh chan struct{}
	closed bool
}

func newCommandQueue() *commandQueue {
	return &commandQueue{wakeCh: make(chan struct{}, 1)}
}

// push appends req and wakes the consumer. It reports false once the queue
// has been closed.
func (q *commandQueue) push(req *request) bool {
	q.Lock()
	if q.closed {
		q.Unlock()
		return false
	}
	q.items = append(q.items, req)
	q.Unlock()

	select {
	case q.wakeCh <- struct{}{}:
	default:
	}
	return true
}

// pop blocks until a request is available.
func (q *commandQueue) pop() *request {
	for {
		q.Lock()
		if len(q.items) > 0 {
			req := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.Unlock()
			return req
		}
		q.Unlock()
		<-q.wakeCh
	}
}

// close rejects further pushes and hands back what was still queued.
func (q *commandQueue) close() []*request {
	q.Lock()
	defer q.Unlock()
	q.closed = true
	rest := q.items
	q.items = nil
	return rest
}

// Run is the worker loop. It returns after a Shutdown command is dequeued.
func (e *Engine) Run() {
	if !e.started.CompareAndSwap(false, true) {
		e.logger.Warn("engine worker already running")
		return
	}
	e.logger.Info("engine started", zap.Stringer("collect_policy", e.policy))

	for {
		req := e.queue.pop()
		if req.typ == Shutdown {
			e.stop(req)
			return
		}
		e.process(req)
	}
}

func (e *Engine) stop(req *request) {
	e.stopped.Store(true)
	rest := e.queue.close()
	for _, pending := range rest {
		pending.failWith(EngineStoppedErr)
	}
	// deferred commits never resolve once the worker is gone
	waiters := 0
	for _, rec := range e.table.records {
		if rec.commitWaiter != nil {
			rec.commitWaiter.fail(EngineStoppedErr)
			rec.commitWaiter = nil
			waiters++
		}
	}
	e.logger.Info("engine stopped",
		zap.Int("dropped_commands", len(rest)),
		zap.Int("deferred_commits", waiters),
		zap.Int("pending_txns", e.table.pendingCount()))
	close(e.stopCh)
	req.doneRes.resolve(struct{}{})
}

func (e *Engine) process(req *request) {
	e.metrics.commands.Add(context.Background(), 1, withCommand(req.typ))
	if ce := e.logger.Check(zap.DebugLevel, "process command"); ce != nil {
		ce.Write(zap.Stringer("cmd", req.typ), zap.Uint64("txn", uint64(req.txn.ID())))
	}

	switch req.typ {
	case Initialize:
		e.doInitialize(req.txn, req.boolRes)
	case Get:
		e.doGet(req.txn, req.key, req.getRes)
	case Put:
		e.doPut(req.txn, req.key, req.value, req.boolRes)
	case Commit:
		e.doCommit(req.txn, req.boolRes)
	case Abort:
		e.doAbort(req.txn, req.boolRes)
	case Collect:
		e.collect()
		req.doneRes.resolve(struct{}{})
	case Stats:
		req.statsRes.resolve(e.stats())
	default:
		e.invariant(false, "unknown command type", zap.Int("typ", int(req.typ)))
		req.failWith(InvariantViolationErr)
	}
}

func (e *Engine) stats() EngineStats {
	return EngineStats{
		Keys:     e.store.Len(),
		Versions: e.store.VersionCount(),
		Pending:  e.table.pendingCount(),
		Records:  len(e.table.records),
		NextID:   e.table.nextID,
	}
}
