package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type escrowRepositoryImpl struct {
	store *badgerhold.Store
}

func newEscrowRepositoryImpl(store *badgerhold.Store) domain.EscrowRepository {
	return &escrowRepositoryImpl{store}
}

func (r *escrowRepositoryImpl) AddEntry(
	ctx context.Context, entry domain.EscrowEntry,
) error {
	entry.AssetKey = entry.Asset.Key()

	if err := withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		return r.store.TxInsert(tx, entry.AssetKey, entry)
	}); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrAssetAlreadyLocked
		}
		return err
	}
	return nil
}

func (r *escrowRepositoryImpl) GetEntryByAsset(
	ctx context.Context, asset domain.Asset,
) (*domain.EscrowEntry, error) {
	var entry domain.EscrowEntry
	if err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		return r.store.TxGet(tx, asset.Key(), &entry)
	}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *escrowRepositoryImpl) GetEntriesBySwap(
	ctx context.Context, swapID uint64,
) ([]domain.EscrowEntry, error) {
	return r.findEntries(ctx, badgerhold.Where("SwapID").Eq(swapID))
}

func (r *escrowRepositoryImpl) GetAllEntries(
	ctx context.Context,
) ([]domain.EscrowEntry, error) {
	return r.findEntries(ctx, nil)
}

func (r *escrowRepositoryImpl) DeleteEntriesBySwap(
	ctx context.Context, swapID uint64,
) (int, error) {
	count := 0
	err := withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		var entries []domain.EscrowEntry
		query := badgerhold.Where("SwapID").Eq(swapID)
		if err := r.store.TxFind(tx, &entries, query); err != nil {
			return err
		}

		for _, e := range entries {
			if err := r.store.TxDelete(
				tx, e.AssetKey, domain.EscrowEntry{},
			); err != nil {
				return err
			}
		}
		count = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *escrowRepositoryImpl) findEntries(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.EscrowEntry, error) {
	var entries []domain.EscrowEntry
	if err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		return r.store.TxFind(tx, &entries, query)
	}); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SwapID == entries[j].SwapID {
			return entries[i].LockedAt < entries[j].LockedAt
		}
		return entries[i].SwapID < entries[j].SwapID
	})
	if entries == nil {
		entries = make([]domain.EscrowEntry, 0)
	}
	return entries, nil
}
