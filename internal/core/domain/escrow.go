package domain

// EscrowEntry represents the temporary custody of one asset on behalf of an
// active swap. At most one entry exists per asset.
type EscrowEntry struct {
	AssetKey      string
	SwapID        uint64
	Asset         Asset
	OriginalOwner string
	CustodyHeld   bool
	LockedAt      int64
}

// NewEscrowEntry returns an entry holding custody of asset for swapID.
func NewEscrowEntry(
	swapID uint64, asset Asset, owner string, lockedAt int64,
) (*EscrowEntry, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if len(owner) <= 0 {
		return nil, ErrInvalidParty
	}
	return &EscrowEntry{
		AssetKey:      asset.Key(),
		SwapID:        swapID,
		Asset:         asset,
		OriginalOwner: owner,
		CustodyHeld:   true,
		LockedAt:      lockedAt,
	}, nil
}
