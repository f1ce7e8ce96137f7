package db

import (
	"errors"

	"tiny_mvto/pkg/txn"
)

var DbAlreadyStoppedErr = errors.New("db is stopped, can not perform the operation")
var ReadOnlyTxnErr = errors.New("txn is read-only, can not perform the operation")
var KeyIsEmptyErr = errors.New("key is empty")
var TxnConflictErr = txn.TxnConflictErr
