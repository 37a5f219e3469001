package application

import (
	"errors"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

var (
	// ErrServiceUnavailable is returned in case of unexpected internal errors.
	ErrServiceUnavailable = errors.New("service is unavailable, try again later")
	// ErrMissingRepoManager ...
	ErrMissingRepoManager = errors.New("missing repo manager")
	// ErrMissingLedger ...
	ErrMissingLedger = errors.New("missing ledger")
	// ErrMissingEscrowAccount ...
	ErrMissingEscrowAccount = errors.New("missing escrow account")
	// ErrUnknownDBType ...
	ErrUnknownDBType = errors.New("unknown db type")
)

// Error kinds exposed to the clients of the daemon.
const (
	KindUnauthorized     = "unauthorized"
	KindInvalidRate      = "invalid_rate"
	KindNotOwner         = "not_owner"
	KindAlreadyLocked    = "already_locked"
	KindInvalidState     = "invalid_state"
	KindExpired          = "expired"
	KindTransferRejected = "transfer_rejected"
	KindFeeNotPaid       = "fee_not_paid"
	KindNotFound         = "not_found"
	KindInvalidArgument  = "invalid_argument"
	KindInternal         = "internal"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{domain.ErrUnauthorized, KindUnauthorized},
	{domain.ErrInvalidFeeRate, KindInvalidRate},
	{domain.ErrNotOwner, KindNotOwner},
	{domain.ErrAssetAlreadyLocked, KindAlreadyLocked},
	{domain.ErrInvalidSwapState, KindInvalidState},
	{domain.ErrSwapExpired, KindExpired},
	{domain.ErrFeeNotPaid, KindFeeNotPaid},
	{domain.ErrTransferRejected, KindTransferRejected},
	{domain.ErrSwapNotFound, KindNotFound},
	{domain.ErrFeePolicyNotFound, KindNotFound},
	{domain.ErrInvalidAsset, KindInvalidArgument},
	{domain.ErrSameAsset, KindInvalidArgument},
	{domain.ErrInvalidParty, KindInvalidArgument},
	{domain.ErrSelfSwap, KindInvalidArgument},
	{domain.ErrInvalidTTL, KindInvalidArgument},
	{domain.ErrSwapExpiryNotReached, KindInvalidState},
	{ErrInvalidWebhookEvent, KindInvalidArgument},
	{ErrInvalidWebhookEndpoint, KindInvalidArgument},
	{ErrWebhookNotFound, KindNotFound},
}

// ErrorKind returns the stable kind of the given error, KindInternal if it
// does not wrap any of the known domain errors.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
