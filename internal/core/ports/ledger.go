package ports

import (
	"context"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

// AssetLedger is the capability exposed by the external NFT registry, the
// source of truth for asset ownership.
type AssetLedger interface {
	// VerifyOwnership returns whether owner currently owns the asset.
	VerifyOwnership(
		ctx context.Context, asset domain.Asset, owner string,
	) (bool, error)
	// Transfer moves the asset from one account to another. A refusal of the
	// ledger is reported with an error wrapping domain.ErrTransferRejected.
	Transfer(ctx context.Context, asset domain.Asset, from, to string) error
}

// PaymentLedger is the capability of the fungible token fees are paid in.
type PaymentLedger interface {
	Balance(ctx context.Context, account string) (uint64, error)
	// Pay moves amount from one account to another. A refusal is reported
	// with an error wrapping domain.ErrTransferRejected.
	Pay(ctx context.Context, from, to string, amount uint64) error
}

// Ledger groups the capabilities of the external ledger.
type Ledger interface {
	AssetLedger
	PaymentLedger
	Close()
}
