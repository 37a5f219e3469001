package domain

import "context"

// SwapFilter narrows the swaps returned by the repository. Zero values match
// anything.
type SwapFilter struct {
	Party  string
	Status SwapStatus
}

// Match returns whether the swap satisfies the filter.
func (f SwapFilter) Match(s Swap) bool {
	if len(f.Party) > 0 && f.Party != s.Proposer && f.Party != s.Counterparty {
		return false
	}
	if f.Status != SwapStatusUndefined && f.Status != s.Status {
		return false
	}
	return true
}

// SwapRepository is the abstraction for any kind of database intended to
// persist Swaps. Swaps are never deleted.
type SwapRepository interface {
	// AddSwap stores a new swap, assigns it the next id of a monotonic
	// sequence and returns it.
	AddSwap(ctx context.Context, swap *Swap) (uint64, error)
	// GetSwap returns the swap with the given id or ErrSwapNotFound.
	GetSwap(ctx context.Context, id uint64) (*Swap, error)
	// GetSwaps returns the swaps matching the filter ordered by id, paginated
	// if page is not nil.
	GetSwaps(ctx context.Context, filter SwapFilter, page *Page) ([]Swap, error)
	// GetActiveSwaps returns all the Proposed or Accepted swaps.
	GetActiveSwaps(ctx context.Context) ([]Swap, error)
	// UpdateSwap allows to commit multiple changes to the same swap in a
	// transactional way.
	UpdateSwap(
		ctx context.Context, id uint64,
		updateFn func(s *Swap) (*Swap, error),
	) error
}
