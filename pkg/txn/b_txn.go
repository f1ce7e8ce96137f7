package txn

import (
	"bytes"
	"sync/atomic"
)

// Txn is the client handle of a transaction. Every method packages a
// command for the worker and returns its future; none of them touch engine
// state directly.
type Txn struct {
	engine *Engine
	id     atomic.Uint64 // assigned by the worker on Initialize
}

// ID is the transaction's timestamp, zero until Initialize has resolved.
func (tx *Txn) ID() TxnID {
	if tx == nil {
		return BaselineID
	}
	return TxnID(tx.id.Load())
}

func (tx *Txn) Initialize() *Future[bool] {
	res := newFuture[bool]()
	tx.engine.enqueue(&request{typ: Initialize, txn: tx, boolRes: res})
	return res
}

func (tx *Txn) Get(key []byte) *Future[GetResult] {
	res := newFuture[GetResult]()
	tx.engine.enqueue(&request{typ: Get, txn: tx, key: bytes.Clone(key), getRes: res})
	return res
}

// Put resolves false when the transaction is not pending or was aborted by
// a write conflict.
func (tx *Txn) Put(key, value []byte) *Future[bool] {
	res := newFuture[bool]()
	if value == nil {
		value = []byte{}
	}
	tx.engine.enqueue(&request{typ: Put, txn: tx, key: bytes.Clone(key), value: bytes.Clone(value), boolRes: res})
	return res
}

// Commit resolves once every writer this transaction dirty-read from has
// terminated: true if it committed, false if it was aborted first.
func (tx *Txn) Commit() *Future[bool] {
	res := newFuture[bool]()
	tx.engine.enqueue(&request{typ: Commit, txn: tx, boolRes: res})
	return res
}

// Abort always resolves true.
func (tx *Txn) Abort() *Future[bool] {
	res := newFuture[bool]()
	tx.engine.enqueue(&request{typ: Abort, txn: tx, boolRes: res})
	return res
}
