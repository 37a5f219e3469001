package domain

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the role required by
	// the operation.
	ErrUnauthorized = errors.New("caller is not authorized to perform this operation")
	// ErrInvalidFeeRate is returned when a fee rate is outside policy bounds.
	ErrInvalidFeeRate = errors.New("fee rate is out of bounds")
	// ErrNotOwner is returned when the ledger does not attest the claimed
	// ownership of an asset.
	ErrNotOwner = errors.New("asset is not owned by the given party")
	// ErrAssetAlreadyLocked is returned when an asset already backs another
	// active swap.
	ErrAssetAlreadyLocked = errors.New("asset already committed to another swap")
	// ErrInvalidSwapState is returned when an operation is not valid for the
	// current status of the swap.
	ErrInvalidSwapState = errors.New("operation not valid for current swap status")
	// ErrSwapExpired is returned when the operation triggered the lazy expiry
	// of the swap.
	ErrSwapExpired = errors.New("swap is expired")
	// ErrTransferRejected is returned when the ledger refuses a transfer.
	ErrTransferRejected = errors.New("ledger rejected the transfer")
	// ErrFeeNotPaid is returned when the settlement fee cannot be collected.
	ErrFeeNotPaid = errors.New("settlement fee not paid")

	// ErrSwapNotFound ...
	ErrSwapNotFound = errors.New("swap not found")
	// ErrFeePolicyNotFound ...
	ErrFeePolicyNotFound = errors.New("fee policy not found")
	// ErrInvalidAsset ...
	ErrInvalidAsset = errors.New("asset reference must have both collection and token id")
	// ErrSameAsset is returned when offered and requested assets coincide.
	ErrSameAsset = errors.New("offered and requested assets must differ")
	// ErrInvalidParty ...
	ErrInvalidParty = errors.New("party must not be empty")
	// ErrSelfSwap is returned when proposer and counterparty coincide.
	ErrSelfSwap = errors.New("proposer and counterparty must differ")
	// ErrInvalidTTL ...
	ErrInvalidTTL = errors.New("swap time-to-live is out of bounds")
	// ErrSwapExpiryNotReached ...
	ErrSwapExpiryNotReached = errors.New("swap did not reach expiration date yet")
)
