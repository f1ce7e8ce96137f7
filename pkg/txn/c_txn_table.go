package txn

import "github.com/tidwall/btree"

// TxnID is a transaction's logical timestamp. Zero is the baseline writer.
type TxnID uint64

const BaselineID TxnID = 0

type TxnState int

const (
	Uninitialized TxnState = iota
	Pending
	Committed
	Aborted
)

func (s TxnState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func (s TxnState) terminal() bool {
	return s == Committed || s == Aborted
}

// txnRecord is the arena slot of one transaction. Dependency edges are ids,
// never pointers, so a slot can be freed without touching its neighbours.
type txnRecord struct {
	id    TxnID
	state TxnState

	dependents   []TxnID       // txns that dirty-read from this one
	pendingDeps  int           // unresolved writers this txn dirty-read from
	commitWaiter *Future[bool] // set once Commit is requested
}

// TxnTable is the id allocator, the record arena and the pending set. It is
// owned by the worker goroutine.
type TxnTable struct {
	nextID  TxnID
	records map[TxnID]*txnRecord
	pending btree.Set[TxnID] // ids not yet committed or aborted
}

func NewTxnTable() *TxnTable {
	return &TxnTable{
		nextID:  1,
		records: make(map[TxnID]*txnRecord),
	}
}

// begin allocates the next id and registers it as pending.
func (t *TxnTable) begin() *txnRecord {
	id := t.nextID
	t.nextID = t.nextID + 1

	rec := &txnRecord{id: id, state: Pending}
	t.records[id] = rec
	t.pending.Insert(id)
	return rec
}

func (t *TxnTable) get(id TxnID) (*txnRecord, bool) {
	rec, ok := t.records[id]
	return rec, ok
}

// finish moves rec to a terminal state and drops it from the pending set.
func (t *TxnTable) finish(rec *txnRecord, state TxnState) {
	rec.state = state
	t.pending.Delete(rec.id)
}

// oldestPending returns the smallest live timestamp.
func (t *TxnTable) oldestPending() (TxnID, bool) {
	return t.pending.Min()
}

func (t *TxnTable) pendingCount() int {
	return t.pending.Len()
}

// release frees every terminal slot not present in referenced.
func (t *TxnTable) release(referenced map[TxnID]struct{}) int {
	freed := 0
	for id, rec := range t.records {
		if !rec.state.terminal() {
			continue
		}
		if _, ok := referenced[id]; ok {
			continue
		}
		delete(t.records, id)
		freed++
	}
	return freed
}
