package db

import (
	"context"
	"fmt"
	"sync/atomic"

	"tiny_mvto/pkg/txn"
)

type Db struct {
	stopped atomic.Bool
	engine  *txn.Engine
}

// New starts an engine with opts and wraps it.
func New(opts ...txn.Option) *Db {
	engine := txn.NewEngine(opts...)
	engine.Start()
	return &Db{engine: engine}
}

func (db *Db) Engine() *txn.Engine {
	return db.engine
}

// View runs fn in a transaction that can only read. The transaction is
// still committed, so View waits for every writer it dirty-read from.
func (db *Db) View(ctx context.Context, fn func(tx *Tx) error) error {
	return db.run(ctx, false, fn)
}

// Update runs fn and commits. A transaction aborted by a write conflict or a
// cascade reports TxnConflictErr; the caller decides whether to retry.
func (db *Db) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return db.run(ctx, true, fn)
}

func (db *Db) run(ctx context.Context, update bool, fn func(tx *Tx) error) error {
	if db.stopped.Load() {
		return DbAlreadyStoppedErr
	}

	handle := db.engine.NewTransaction()
	ok, err := handle.Initialize().Await(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("initialize txn: %w", txn.InvariantViolationErr)
	}

	tx := &Tx{ctx: ctx, update: update, handle: handle}
	defer tx.discard() // abort the txn if fn or the commit did not finish it

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (db *Db) Stop() {
	if db.stopped.CompareAndSwap(false, true) {
		_, _ = db.engine.Shutdown().Wait()
	}
}
