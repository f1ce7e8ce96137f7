package db

import (
	"context"

	"tiny_mvto/pkg/txn"
)

// Tx is the synchronous view of one engine transaction inside View/Update.
type Tx struct {
	ctx      context.Context
	update   bool
	finished bool
	handle   *txn.Txn
}

func (tx *Tx) ID() txn.TxnID {
	return tx.handle.ID()
}

// Get returns the visible value of key. Keys never written read as empty.
func (tx *Tx) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, KeyIsEmptyErr
	}
	res, err := tx.handle.Get(key).Await(tx.ctx)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded {
		tx.finished = true
		return nil, TxnConflictErr
	}
	return res.Content, nil
}

func (tx *Tx) Set(key, value []byte) error {
	switch {
	case !tx.update:
		return ReadOnlyTxnErr
	case len(key) == 0:
		return KeyIsEmptyErr
	}
	ok, err := tx.handle.Put(key, value).Await(tx.ctx)
	if err != nil {
		return err
	}
	if !ok {
		tx.finished = true
		return TxnConflictErr
	}
	return nil
}

func (tx *Tx) commit() error {
	ok, err := tx.handle.Commit().Await(tx.ctx)
	if err != nil {
		return err
	}
	tx.finished = true
	if !ok {
		return TxnConflictErr
	}
	return nil
}

func (tx *Tx) discard() {
	if tx.finished {
		return
	}
	tx.finished = true
	tx.handle.Abort()
}
