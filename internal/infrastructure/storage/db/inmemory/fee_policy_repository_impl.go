package inmemory

import (
	"context"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

type feePolicyRepositoryImpl struct {
	store *inmemoryStore
}

// NewFeePolicyRepositoryImpl returns a new inmemory FeePolicyRepository
// implementation.
func NewFeePolicyRepositoryImpl(
	store *inmemoryStore,
) domain.FeePolicyRepository {
	return &feePolicyRepositoryImpl{store}
}

func (r *feePolicyRepositoryImpl) GetFeePolicy(
	_ context.Context,
) (*domain.FeePolicy, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	if r.store.feePolicy == nil {
		return nil, domain.ErrFeePolicyNotFound
	}
	policy := *r.store.feePolicy
	return &policy, nil
}

func (r *feePolicyRepositoryImpl) AddFeePolicy(
	ctx context.Context, policy domain.FeePolicy,
) error {
	unlock, err := r.store.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if r.store.feePolicy != nil {
		return ErrFeePolicyExists
	}
	r.store.feePolicy = &policy

	onRollback(ctx, func(s *inmemoryStore) {
		s.feePolicy = nil
	})
	return nil
}

func (r *feePolicyRepositoryImpl) UpdateFeePolicy(
	ctx context.Context,
	updateFn func(p *domain.FeePolicy) (*domain.FeePolicy, error),
) error {
	unlock, err := r.store.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if r.store.feePolicy == nil {
		return domain.ErrFeePolicyNotFound
	}
	previous := *r.store.feePolicy
	policy := previous

	updatedPolicy, err := updateFn(&policy)
	if err != nil {
		return err
	}
	updated := *updatedPolicy
	r.store.feePolicy = &updated

	onRollback(ctx, func(s *inmemoryStore) {
		s.feePolicy = &previous
	})
	return nil
}
