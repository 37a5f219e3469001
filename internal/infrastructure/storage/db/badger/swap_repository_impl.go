package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type swapRepositoryImpl struct {
	store *badgerhold.Store
	seq   *badger.Sequence
}

func newSwapRepositoryImpl(
	store *badgerhold.Store, seq *badger.Sequence,
) domain.SwapRepository {
	return &swapRepositoryImpl{store, seq}
}

func (r *swapRepositoryImpl) AddSwap(
	ctx context.Context, swap *domain.Swap,
) (uint64, error) {
	next, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	id := next + 1
	swap.ID = id

	if err := withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		return r.store.TxInsert(tx, id, *swap)
	}); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *swapRepositoryImpl) GetSwap(
	ctx context.Context, id uint64,
) (*domain.Swap, error) {
	var swap domain.Swap
	if err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		return r.store.TxGet(tx, id, &swap)
	}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrSwapNotFound
		}
		return nil, err
	}
	return &swap, nil
}

func (r *swapRepositoryImpl) GetSwaps(
	ctx context.Context, filter domain.SwapFilter, page *domain.Page,
) ([]domain.Swap, error) {
	var query *badgerhold.Query
	if filter.Status != domain.SwapStatusUndefined {
		query = badgerhold.Where("Status").Eq(filter.Status)
	}

	swaps, err := r.findSwaps(ctx, query)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Swap, 0, len(swaps))
	for _, s := range swaps {
		if filter.Match(s) {
			filtered = append(filtered, s)
		}
	}
	if page != nil {
		start, end := page.Bounds(len(filtered))
		filtered = filtered[start:end]
	}
	return filtered, nil
}

func (r *swapRepositoryImpl) GetActiveSwaps(
	ctx context.Context,
) ([]domain.Swap, error) {
	query := badgerhold.Where("Status").In(
		domain.SwapStatusProposed, domain.SwapStatusAccepted,
	)
	return r.findSwaps(ctx, query)
}

func (r *swapRepositoryImpl) UpdateSwap(
	ctx context.Context, id uint64,
	updateFn func(s *domain.Swap) (*domain.Swap, error),
) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		var swap domain.Swap
		if err := r.store.TxGet(tx, id, &swap); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrSwapNotFound
			}
			return err
		}

		updatedSwap, err := updateFn(&swap)
		if err != nil {
			return err
		}
		updatedSwap.ID = id

		return r.store.TxUpdate(tx, id, *updatedSwap)
	})
}

func (r *swapRepositoryImpl) findSwaps(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Swap, error) {
	var swaps []domain.Swap
	if err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		return r.store.TxFind(tx, &swaps, query)
	}); err != nil {
		return nil, err
	}

	sort.SliceStable(swaps, func(i, j int) bool {
		return swaps[i].ID < swaps[j].ID
	})
	if swaps == nil {
		swaps = make([]domain.Swap, 0)
	}
	return swaps, nil
}
