package txn

type requestType int

const (
	Initialize requestType = iota // initialize
	Get                           // get
	Put                           // put
	Commit                        // commit
	Abort                         // abort
	Collect                       // collect
	Stats                         // stats
	Shutdown                      // shutdown
)

func (t requestType) String() string {
	switch t {
	case Initialize:
		return "initialize"
	case Get:
		return "get"
	case Put:
		return "put"
	case Commit:
		return "commit"
	case Abort:
		return "abort"
	case Collect:
		return "collect"
	case Stats:
		return "stats"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

type request struct {
	typ   requestType
	txn   *Txn
	key   []byte
	value []byte

	boolRes  *Future[bool]
	getRes   *Future[GetResult]
	doneRes  *Future[struct{}]
	statsRes *Future[EngineStats]
}

// GetResult is the outcome of a Get. Succeeded is false when the
// transaction was not pending.
type GetResult struct {
	Succeeded bool
	Content   []byte
}

// EngineStats is a point-in-time view of the worker-owned state.
type EngineStats struct {
	Keys     int
	Versions int
	Pending  int
	Records  int
	NextID   TxnID
}

// failWith resolves whichever future the request carries with err.
func (r *request) failWith(err error) {
	switch {
	case r.boolRes != nil:
		r.boolRes.fail(err)
	case r.getRes != nil:
		r.getRes.fail(err)
	case r.doneRes != nil:
		r.doneRes.fail(err)
	case r.statsRes != nil:
		r.statsRes.fail(err)
	}
}
