package db

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiny_mvto/pkg/txn"
)

func newTestDb(t *testing.T, opts ...txn.Option) *Db {
	t.Helper()
	db := New(opts...)
	t.Cleanup(db.Stop)
	return db
}

func TestGetsTheValueOfANonExistingKey(t *testing.T) {
	db := newTestDb(t)
	err := db.View(context.Background(), func(tx *Tx) error {
		value, err := tx.Get([]byte("non-existing"))
		assert.NoError(t, err)
		assert.Empty(t, value)
		return nil
	})
	assert.Nil(t, err)
}

func TestGetsTheValueOfAnExistingKey(t *testing.T) {
	db := newTestDb(t)
	ctx := context.Background()

	err := db.Update(ctx, func(tx *Tx) error {
		return tx.Set([]byte("HDD"), []byte("Hard disk"))
	})
	assert.Nil(t, err)

	err = db.Update(ctx, func(tx *Tx) error {
		return tx.Set([]byte("HDD"), []byte("Hard disk drive"))
	})
	assert.Nil(t, err)

	_ = db.View(ctx, func(tx *Tx) error {
		value, err := tx.Get([]byte("HDD"))
		assert.NoError(t, err)
		assert.Equal(t, []byte("Hard disk drive"), value)
		return nil
	})
}

func TestPutsMultipleKeyValuesInATransaction(t *testing.T) {
	db := newTestDb(t)
	ctx := context.Background()

	err := db.Update(ctx, func(tx *Tx) error {
		for count := 1; count <= 100; count++ {
			if err := tx.Set([]byte("Key:"+strconv.Itoa(count)), []byte("Value:"+strconv.Itoa(count))); err != nil {
				return err
			}
		}
		return nil
	})
	assert.Nil(t, err)

	err = db.Update(ctx, func(tx *Tx) error {
		for count := 1; count <= 100; count++ {
			if err := tx.Set([]byte("Key:"+strconv.Itoa(count)), []byte("Value#"+strconv.Itoa(count))); err != nil {
				return err
			}
		}
		return nil
	})
	assert.Nil(t, err)

	_ = db.View(ctx, func(tx *Tx) error {
		for count := 1; count <= 100; count++ {
			value, err := tx.Get([]byte("Key:" + strconv.Itoa(count)))
			assert.NoError(t, err)
			assert.Equal(t, []byte("Value#"+strconv.Itoa(count)), value)
		}
		return nil
	})
}

func TestInvolvesConflictingTransactions(t *testing.T) {
	db := newTestDb(t)
	ctx := context.Background()

	younger := make(chan struct{})
	olderDone := make(chan error)

	// the older txn reads nothing, then writes HDD after a younger txn has
	// already read it
	go func() {
		olderDone <- db.Update(ctx, func(tx *Tx) error {
			<-younger
			return tx.Set([]byte("HDD"), []byte("Hard disk"))
		})
	}()

	// wait until the older txn holds the smaller timestamp
	require.Eventually(t, func() bool {
		stats, err := db.Engine().Stats().Wait()
		return err == nil && stats.Pending == 1
	}, time.Second, time.Millisecond)

	err := db.View(ctx, func(tx *Tx) error {
		_, err := tx.Get([]byte("HDD"))
		return err
	})
	assert.Nil(t, err)
	close(younger)

	err = <-olderDone
	assert.Error(t, err)
	assert.Equal(t, TxnConflictErr, err)
}

func TestFnErrorAbortsTheTransaction(t *testing.T) {
	db := newTestDb(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Update(ctx, func(tx *Tx) error {
		require.NoError(t, tx.Set([]byte("k"), []byte("v")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = db.View(ctx, func(tx *Tx) error {
		value, err := tx.Get([]byte("k"))
		assert.NoError(t, err)
		assert.Empty(t, value)
		return nil
	})
}

func TestViewIsReadOnly(t *testing.T) {
	db := newTestDb(t)
	err := db.View(context.Background(), func(tx *Tx) error {
		return tx.Set([]byte("k"), []byte("v"))
	})
	assert.Equal(t, ReadOnlyTxnErr, err)
}

func TestEmptyKeyIsRejected(t *testing.T) {
	db := newTestDb(t)
	err := db.Update(context.Background(), func(tx *Tx) error {
		return tx.Set(nil, []byte("v"))
	})
	assert.Equal(t, KeyIsEmptyErr, err)
}

func TestStoppedDbRejectsTransactions(t *testing.T) {
	db := New()
	db.Stop()
	db.Stop()

	err := db.View(context.Background(), func(tx *Tx) error { return nil })
	assert.Equal(t, DbAlreadyStoppedErr, err)
}
