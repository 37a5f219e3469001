package inmemory

import (
	"context"
	"sort"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

type escrowRepositoryImpl struct {
	store *inmemoryStore
}

// NewEscrowRepositoryImpl returns a new inmemory EscrowRepository
// implementation.
func NewEscrowRepositoryImpl(store *inmemoryStore) domain.EscrowRepository {
	return &escrowRepositoryImpl{store}
}

func (r *escrowRepositoryImpl) AddEntry(
	ctx context.Context, entry domain.EscrowEntry,
) error {
	unlock, err := r.store.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	key := entry.Asset.Key()
	if _, ok := r.store.entries[key]; ok {
		return domain.ErrAssetAlreadyLocked
	}
	entry.AssetKey = key
	r.store.entries[key] = entry

	onRollback(ctx, func(s *inmemoryStore) {
		delete(s.entries, key)
	})
	return nil
}

func (r *escrowRepositoryImpl) GetEntryByAsset(
	_ context.Context, asset domain.Asset,
) (*domain.EscrowEntry, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	entry, ok := r.store.entries[asset.Key()]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (r *escrowRepositoryImpl) GetEntriesBySwap(
	_ context.Context, swapID uint64,
) ([]domain.EscrowEntry, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.findEntries(func(e domain.EscrowEntry) bool {
		return e.SwapID == swapID
	}), nil
}

func (r *escrowRepositoryImpl) GetAllEntries(
	_ context.Context,
) ([]domain.EscrowEntry, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.findEntries(func(domain.EscrowEntry) bool { return true }), nil
}

func (r *escrowRepositoryImpl) DeleteEntriesBySwap(
	ctx context.Context, swapID uint64,
) (int, error) {
	unlock, err := r.store.beginWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	deleted := r.findEntries(func(e domain.EscrowEntry) bool {
		return e.SwapID == swapID
	})
	for _, e := range deleted {
		delete(r.store.entries, e.AssetKey)
	}

	onRollback(ctx, func(s *inmemoryStore) {
		for _, e := range deleted {
			s.entries[e.AssetKey] = e
		}
	})
	return len(deleted), nil
}

func (r *escrowRepositoryImpl) findEntries(
	match func(domain.EscrowEntry) bool,
) []domain.EscrowEntry {
	entries := make([]domain.EscrowEntry, 0)
	for _, e := range r.store.entries {
		if match(e) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SwapID == entries[j].SwapID {
			return entries[i].LockedAt < entries[j].LockedAt
		}
		return entries[i].SwapID < entries[j].SwapID
	})
	return entries
}
