package inmemory

import (
	"context"
	"sort"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

type swapRepositoryImpl struct {
	store *inmemoryStore
}

// NewSwapRepositoryImpl returns a new inmemory SwapRepository implementation.
func NewSwapRepositoryImpl(store *inmemoryStore) domain.SwapRepository {
	return &swapRepositoryImpl{store}
}

func (r *swapRepositoryImpl) AddSwap(
	ctx context.Context, swap *domain.Swap,
) (uint64, error) {
	unlock, err := r.store.beginWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.swapSeq++
	id := r.store.swapSeq
	swap.ID = id
	r.store.swaps[id] = copySwap(*swap)

	onRollback(ctx, func(s *inmemoryStore) {
		delete(s.swaps, id)
	})
	return id, nil
}

func (r *swapRepositoryImpl) GetSwap(
	_ context.Context, id uint64,
) (*domain.Swap, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	swap, ok := r.store.swaps[id]
	if !ok {
		return nil, domain.ErrSwapNotFound
	}
	s := copySwap(swap)
	return &s, nil
}

func (r *swapRepositoryImpl) GetSwaps(
	_ context.Context, filter domain.SwapFilter, page *domain.Page,
) ([]domain.Swap, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	swaps := r.findSwaps(filter.Match)
	if page != nil {
		start, end := page.Bounds(len(swaps))
		swaps = swaps[start:end]
	}
	return swaps, nil
}

func (r *swapRepositoryImpl) GetActiveSwaps(
	_ context.Context,
) ([]domain.Swap, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.findSwaps(func(s domain.Swap) bool {
		return s.Status.IsActive()
	}), nil
}

func (r *swapRepositoryImpl) UpdateSwap(
	ctx context.Context, id uint64,
	updateFn func(s *domain.Swap) (*domain.Swap, error),
) error {
	unlock, err := r.store.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	current, ok := r.store.swaps[id]
	if !ok {
		return domain.ErrSwapNotFound
	}

	s := copySwap(current)
	updatedSwap, err := updateFn(&s)
	if err != nil {
		return err
	}
	updatedSwap.ID = id
	r.store.swaps[id] = copySwap(*updatedSwap)

	onRollback(ctx, func(s *inmemoryStore) {
		s.swaps[id] = current
	})
	return nil
}

func (r *swapRepositoryImpl) findSwaps(match func(domain.Swap) bool) []domain.Swap {
	swaps := make([]domain.Swap, 0)
	for _, s := range r.store.swaps {
		if match(s) {
			swaps = append(swaps, copySwap(s))
		}
	}
	sort.SliceStable(swaps, func(i, j int) bool {
		return swaps[i].ID < swaps[j].ID
	})
	return swaps
}

func copySwap(s domain.Swap) domain.Swap {
	if s.CancelConsents != nil {
		consents := make([]string, len(s.CancelConsents))
		copy(consents, s.CancelConsents)
		s.CancelConsents = consents
	}
	return s
}
