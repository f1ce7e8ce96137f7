package txn

import "errors"

var EngineStoppedErr = errors.New("engine is stopped, can not perform the operation")
var TxnConflictErr = errors.New("txn was aborted, can not commit")
var InvariantViolationErr = errors.New("engine invariant violated")
var FutureResolvedErr = errors.New("future is already resolved")
