package txn

import (
	"bytes"
	"context"

	"go.uber.org/zap"
)

type abortReason string

const (
	abortExplicit abortReason = "explicit"
	abortConflict abortReason = "conflict"
	abortCascade  abortReason = "cascade"
)

// record returns the arena slot of tx, if it was initialized and the slot
// has not been released.
func (e *Engine) record(tx *Txn) (*txnRecord, bool) {
	id := tx.ID()
	if id == BaselineID {
		return nil, false
	}
	return e.table.get(id)
}

func (e *Engine) pendingRecord(tx *Txn) (*txnRecord, bool) {
	rec, ok := e.record(tx)
	if !ok || rec.state != Pending {
		return nil, false
	}
	return rec, true
}

// stateOf resolves a version's writer. The baseline writer is committed.
func (e *Engine) stateOf(id TxnID) TxnState {
	if id == BaselineID {
		return Committed
	}
	rec, ok := e.table.get(id)
	if !e.invariant(ok, "writer record released while still referenced", zap.Uint64("writer", uint64(id))) {
		return Committed
	}
	e.invariant(rec.state != Uninitialized, "writer is uninitialized", zap.Uint64("writer", uint64(id)))
	return rec.state
}

// visibleVersion is the newest non-aborted version of key written at or
// before rec's timestamp.
func (e *Engine) visibleVersion(rec *txnRecord, key []byte) (*keyChain, *Version) {
	chain := e.store.getChain(key)
	idx, ok := chain.visible(rec.id, e.stateOf)
	if !e.invariant(ok, "chain has no visible version", zap.ByteString("key", key)) {
		return chain, chain.reseed()
	}
	return chain, chain.versions[idx]
}

func (e *Engine) doInitialize(tx *Txn, res *Future[bool]) {
	if tx.ID() != BaselineID {
		res.resolve(false)
		return
	}
	rec := e.table.begin()
	tx.id.Store(uint64(rec.id))
	e.metrics.pending.Add(context.Background(), 1)
	res.resolve(true)
}

func (e *Engine) doGet(tx *Txn, key []byte, res *Future[GetResult]) {
	rec, ok := e.pendingRecord(tx)
	if !ok {
		res.resolve(GetResult{Succeeded: false})
		return
	}

	_, version := e.visibleVersion(rec, key)
	if version.Writer != rec.id && version.Writer != BaselineID {
		if writer, ok := e.table.get(version.Writer); ok && writer.state == Pending {
			// dirty read: rec can not commit before writer does
			rec.pendingDeps++
			writer.dependents = append(writer.dependents, rec.id)
		}
	}
	version.ReadTs = max(version.ReadTs, rec.id)

	res.resolve(GetResult{Succeeded: true, Content: bytes.Clone(version.Content)})
}

func (e *Engine) doPut(tx *Txn, key, value []byte, res *Future[bool]) {
	rec, ok := e.pendingRecord(tx)
	if !ok {
		res.resolve(false)
		return
	}

	chain, version := e.visibleVersion(rec, key)
	if version.ReadTs > rec.id {
		// a younger txn already read the value this write would shadow
		e.logger.Debug("write conflict",
			zap.Uint64("txn", uint64(rec.id)),
			zap.Uint64("read_ts", uint64(version.ReadTs)),
			zap.ByteString("key", key))
		e.abort(rec, abortConflict)
		e.afterTermination()
		res.resolve(false)
		return
	}

	chain.insert(&Version{Content: value, Writer: rec.id, ReadTs: rec.id})
	res.resolve(true)
}

func (e *Engine) doCommit(tx *Txn, res *Future[bool]) {
	rec, ok := e.pendingRecord(tx)
	if !ok || rec.commitWaiter != nil {
		res.resolve(false)
		return
	}

	rec.commitWaiter = res
	if e.tryCommit(rec) {
		e.afterTermination()
	}
}

func (e *Engine) doAbort(tx *Txn, res *Future[bool]) {
	if rec, ok := e.pendingRecord(tx); ok {
		e.abort(rec, abortExplicit)
		e.afterTermination()
	}
	res.resolve(true)
}

// tryCommit commits rec if it asked to and has no unresolved dependency,
// then walks its dependents the same way. It reports whether any
// transaction terminated.
func (e *Engine) tryCommit(rec *txnRecord) bool {
	ctx := context.Background()
	terminated := false

	work := []*txnRecord{rec}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		if cur.state != Pending || cur.commitWaiter == nil || cur.pendingDeps > 0 {
			continue
		}

		e.table.finish(cur, Committed)
		e.metrics.pending.Add(ctx, -1)
		e.metrics.commits.Add(ctx, 1)
		terminated = true

		for _, depID := range cur.dependents {
			dep, ok := e.table.get(depID)
			if !ok || dep.state == Aborted {
				continue
			}
			if !e.invariant(dep.state == Pending, "dependent committed before its writer",
				zap.Uint64("writer", uint64(cur.id)), zap.Uint64("dependent", uint64(depID))) {
				continue
			}
			dep.pendingDeps--
			e.invariant(dep.pendingDeps >= 0, "negative dependency count", zap.Uint64("txn", uint64(depID)))
			work = append(work, dep)
		}
		cur.dependents = nil

		waiter := cur.commitWaiter
		cur.commitWaiter = nil
		waiter.resolve(true)
	}
	return terminated
}

// abort moves rec and every transaction that dirty-read from it, directly
// or transitively, to Aborted.
func (e *Engine) abort(rec *txnRecord, reason abortReason) {
	ctx := context.Background()

	work := []*txnRecord{rec}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		if cur.state != Pending {
			continue
		}

		e.table.finish(cur, Aborted)
		e.metrics.pending.Add(ctx, -1)
		if cur == rec {
			e.metrics.aborts.Add(ctx, 1, withReason(reason))
		} else {
			e.metrics.aborts.Add(ctx, 1, withReason(abortCascade))
			e.logger.Debug("cascading abort",
				zap.Uint64("txn", uint64(cur.id)), zap.Uint64("origin", uint64(rec.id)))
		}

		for _, depID := range cur.dependents {
			dep, ok := e.table.get(depID)
			if !ok || dep.state == Aborted {
				continue
			}
			if !e.invariant(dep.state == Pending, "dependent committed before its aborting writer",
				zap.Uint64("writer", uint64(cur.id)), zap.Uint64("dependent", uint64(depID))) {
				continue
			}
			work = append(work, dep)
		}
		cur.dependents = nil

		if cur.commitWaiter != nil {
			waiter := cur.commitWaiter
			cur.commitWaiter = nil
			waiter.resolve(false)
		}
	}
}

func (e *Engine) afterTermination() {
	if e.policy == CollectEager {
		e.collect()
	}
}
