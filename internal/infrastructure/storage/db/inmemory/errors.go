package inmemory

import "errors"

var (
	// ErrReadOnlyTx is returned when writing through a read-only transaction.
	ErrReadOnlyTx = errors.New("cannot write in a read-only transaction")
	// ErrFeePolicyExists ...
	ErrFeePolicyExists = errors.New("fee policy already exists")
)
