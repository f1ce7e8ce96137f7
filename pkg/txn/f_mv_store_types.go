package txn

// Version is one value of a key. Writer is the id of the owning
// transaction, BaselineID for the synthetic already-committed writer.
type Version struct {
	Content []byte
	Writer  TxnID
	ReadTs  TxnID // highest id that has observed this version
}

func baselineVersion() *Version {
	return &Version{Content: []byte{}, Writer: BaselineID, ReadTs: 0}
}

// keyChain holds the versions of one key ordered by writer id ascending.
// It is never empty.
type keyChain struct {
	key      []byte
	versions []*Version
}

func newKeyChain(key []byte) *keyChain {
	return &keyChain{
		key:      key,
		versions: []*Version{baselineVersion()},
	}
}

// visible returns the index of the newest version with writer <= ts whose
// writer is not aborted.
func (c *keyChain) visible(ts TxnID, stateOf func(TxnID) TxnState) (int, bool) {
	for i := len(c.versions) - 1; i >= 0; i-- {
		v := c.versions[i]
		if v.Writer > ts {
			continue
		}
		if stateOf(v.Writer) == Aborted {
			continue
		}
		return i, true
	}
	return -1, false
}

// insert places v after the last version whose writer is <= v.Writer. In
// the common case that is the tail.
func (c *keyChain) insert(v *Version) {
	pos := len(c.versions)
	for pos > 0 && c.versions[pos-1].Writer > v.Writer {
		pos--
	}
	c.versions = append(c.versions, nil)
	copy(c.versions[pos+1:], c.versions[pos:])
	c.versions[pos] = v
}

func (c *keyChain) reseed() *Version {
	base := baselineVersion()
	c.versions = append([]*Version{base}, c.versions...)
	return base
}
