package domain

import "context"

// FeePolicyRepository persists the single process-wide fee policy.
type FeePolicyRepository interface {
	// GetFeePolicy returns the stored policy or ErrFeePolicyNotFound.
	GetFeePolicy(ctx context.Context) (*FeePolicy, error)
	// AddFeePolicy stores the policy if none exists yet.
	AddFeePolicy(ctx context.Context, policy FeePolicy) error
	UpdateFeePolicy(
		ctx context.Context,
		updateFn func(p *FeePolicy) (*FeePolicy, error),
	) error
}
