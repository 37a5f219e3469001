package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const feePolicyKey = "fee_policy"

type feePolicyRepositoryImpl struct {
	store *badgerhold.Store
}

func newFeePolicyRepositoryImpl(
	store *badgerhold.Store,
) domain.FeePolicyRepository {
	return &feePolicyRepositoryImpl{store}
}

func (r *feePolicyRepositoryImpl) GetFeePolicy(
	ctx context.Context,
) (*domain.FeePolicy, error) {
	var policy domain.FeePolicy
	if err := withTx(ctx, r.store, false, func(tx *badger.Txn) error {
		return r.store.TxGet(tx, feePolicyKey, &policy)
	}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrFeePolicyNotFound
		}
		return nil, err
	}
	return &policy, nil
}

func (r *feePolicyRepositoryImpl) AddFeePolicy(
	ctx context.Context, policy domain.FeePolicy,
) error {
	if err := withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		return r.store.TxInsert(tx, feePolicyKey, policy)
	}); err != nil {
		if err == badgerhold.ErrKeyExists {
			return ErrFeePolicyExists
		}
		return err
	}
	return nil
}

func (r *feePolicyRepositoryImpl) UpdateFeePolicy(
	ctx context.Context,
	updateFn func(p *domain.FeePolicy) (*domain.FeePolicy, error),
) error {
	return withTx(ctx, r.store, true, func(tx *badger.Txn) error {
		var policy domain.FeePolicy
		if err := r.store.TxGet(tx, feePolicyKey, &policy); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrFeePolicyNotFound
			}
			return err
		}

		updatedPolicy, err := updateFn(&policy)
		if err != nil {
			return err
		}
		return r.store.TxUpdate(tx, feePolicyKey, *updatedPolicy)
	})
}
