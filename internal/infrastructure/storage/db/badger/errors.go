package dbbadger

import "errors"

var (
	// ErrFeePolicyExists ...
	ErrFeePolicyExists = errors.New("fee policy already exists")
)
