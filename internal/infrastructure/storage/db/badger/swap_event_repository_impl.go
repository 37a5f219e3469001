package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type swapEventRepositoryImpl struct {
	store *badgerhold.Store
	seq   *badger.Sequence
}

func newSwapEventRepositoryImpl(
	store *badgerhold.Store, seq *badger.Sequence,
) domain.SwapEventRepository {
	return &swapEventRepositoryImpl{store, seq}
}

func (r *swapEventRepositoryImpl) AddEvents(
	ctx context.Context, events ...domain.SwapEvent,
) error {
	if len(events) <= 0 {
		return nil
	}

	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		for _, e := range events {
			next, err := r.seq.Next()
			if err != nil {
				return err
			}
			e.Seq = next + 1

			if err := r.store.TxInsert(tx, e.Seq, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *swapEventRepositoryImpl) GetEventsForSwap(
	ctx context.Context, swapID uint64,
) ([]domain.SwapEvent, error) {
	return r.findEvents(ctx, badgerhold.Where("SwapID").Eq(swapID))
}

func (r *swapEventRepositoryImpl) GetAllEvents(
	ctx context.Context,
) ([]domain.SwapEvent, error) {
	return r.findEvents(ctx, nil)
}

func (r *swapEventRepositoryImpl) findEvents(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.SwapEvent, error) {
	var events []domain.SwapEvent
	if err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		return r.store.TxFind(tx, &events, query)
	}); err != nil {
		return nil, err
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Seq < events[j].Seq
	})
	if events == nil {
		events = make([]domain.SwapEvent, 0)
	}
	return events, nil
}
