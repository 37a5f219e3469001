package domain

import "context"

// EscrowRepository persists the materialized table of active custody
// entries. It is the only place where the one-asset-one-swap rule is
// enforced.
type EscrowRepository interface {
	// AddEntry stores a custody entry. It fails with ErrAssetAlreadyLocked if
	// the asset already has one.
	AddEntry(ctx context.Context, entry EscrowEntry) error
	// GetEntryByAsset returns the custody entry of the asset, nil if none.
	GetEntryByAsset(ctx context.Context, asset Asset) (*EscrowEntry, error)
	// GetEntriesBySwap returns the custody entries held for a swap.
	GetEntriesBySwap(ctx context.Context, swapID uint64) ([]EscrowEntry, error)
	// GetAllEntries returns every active custody entry.
	GetAllEntries(ctx context.Context) ([]EscrowEntry, error)
	// DeleteEntriesBySwap removes the custody entries of a swap and returns
	// how many were removed. Removing none is not an error.
	DeleteEntriesBySwap(ctx context.Context, swapID uint64) (int, error)
}
