package inmemory

import (
	"context"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

type swapEventRepositoryImpl struct {
	store *inmemoryStore
}

// NewSwapEventRepositoryImpl returns a new inmemory SwapEventRepository
// implementation.
func NewSwapEventRepositoryImpl(
	store *inmemoryStore,
) domain.SwapEventRepository {
	return &swapEventRepositoryImpl{store}
}

func (r *swapEventRepositoryImpl) AddEvents(
	ctx context.Context, events ...domain.SwapEvent,
) error {
	if len(events) <= 0 {
		return nil
	}
	unlock, err := r.store.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	added := make(map[string]struct{}, len(events))
	for _, e := range events {
		r.store.eventSeq++
		e.Seq = r.store.eventSeq
		r.store.events = append(r.store.events, e)
		added[e.ID] = struct{}{}
	}

	onRollback(ctx, func(s *inmemoryStore) {
		kept := s.events[:0]
		for _, e := range s.events {
			if _, ok := added[e.ID]; !ok {
				kept = append(kept, e)
			}
		}
		s.events = kept
	})
	return nil
}

func (r *swapEventRepositoryImpl) GetEventsForSwap(
	_ context.Context, swapID uint64,
) ([]domain.SwapEvent, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	events := make([]domain.SwapEvent, 0)
	for _, e := range r.store.events {
		if e.SwapID == swapID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (r *swapEventRepositoryImpl) GetAllEvents(
	_ context.Context,
) ([]domain.SwapEvent, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	events := make([]domain.SwapEvent, len(r.store.events))
	copy(events, r.store.events)
	return events, nil
}
