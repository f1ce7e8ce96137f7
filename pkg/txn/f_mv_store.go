package txn

import (
	"bytes"

	"github.com/tidwall/btree"
)

// MvStore maps each key to its version chain. Only the worker touches it,
// so the tree runs without its internal locks.
type MvStore struct {
	btree *btree.BTreeG[*keyChain]
}

func NewMVStore() *MvStore {
	return &MvStore{
		btree: btree.NewBTreeGOptions(func(a, b *keyChain) bool {
			return bytes.Compare(a.key, b.key) < 0
		}, btree.Options{NoLocks: true}),
	}
}

// getChain returns the chain of key, seeding it with a baseline version on
// first access.
func (mvStore *MvStore) getChain(key []byte) *keyChain {
	if chain, ok := mvStore.btree.Get(&keyChain{key: key}); ok {
		return chain
	}
	chain := newKeyChain(bytes.Clone(key))
	mvStore.btree.Set(chain)
	return chain
}

func (mvStore *MvStore) scan(iter func(chain *keyChain) bool) {
	mvStore.btree.Scan(iter)
}

// Len is the number of keys ever touched and not yet dropped.
func (mvStore *MvStore) Len() int {
	return mvStore.btree.Len()
}

func (mvStore *MvStore) VersionCount() int {
	count := 0
	mvStore.scan(func(chain *keyChain) bool {
		count += len(chain.versions)
		return true
	})
	return count
}
