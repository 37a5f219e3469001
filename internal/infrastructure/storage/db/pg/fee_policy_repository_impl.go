package postgresdb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

const (
	insertFeePolicyQuery = `INSERT INTO fee_policy (id, admin, fee_collector,
	fee_rate, updated_at) VALUES (1, $1, $2, $3, $4)`
	selectFeePolicyQuery = `SELECT admin, fee_collector, fee_rate, updated_at
	FROM fee_policy WHERE id = 1`
	updateFeePolicyQuery = `UPDATE fee_policy SET admin = $1,
	fee_collector = $2, fee_rate = $3, updated_at = $4 WHERE id = 1`
)

var ErrFeePolicyExists = errors.New("fee policy already exists")

type feePolicyRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

func newFeePolicyRepositoryImpl(
	querier func(ctx context.Context) querier,
) domain.FeePolicyRepository {
	return &feePolicyRepositoryImpl{querier}
}

func (f *feePolicyRepositoryImpl) GetFeePolicy(
	ctx context.Context,
) (*domain.FeePolicy, error) {
	return f.getFeePolicy(ctx, selectFeePolicyQuery)
}

func (f *feePolicyRepositoryImpl) AddFeePolicy(
	ctx context.Context, policy domain.FeePolicy,
) error {
	if _, err := f.querier(ctx).Exec(
		ctx, insertFeePolicyQuery,
		policy.Admin, policy.FeeCollector, int64(policy.FeeRate),
		policy.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrFeePolicyExists
		}
		return err
	}
	return nil
}

func (f *feePolicyRepositoryImpl) UpdateFeePolicy(
	ctx context.Context,
	updateFn func(p *domain.FeePolicy) (*domain.FeePolicy, error),
) error {
	policy, err := f.getFeePolicy(ctx, selectFeePolicyQuery+" FOR UPDATE")
	if err != nil {
		return err
	}

	updatedPolicy, err := updateFn(policy)
	if err != nil {
		return err
	}

	_, err = f.querier(ctx).Exec(
		ctx, updateFeePolicyQuery,
		updatedPolicy.Admin, updatedPolicy.FeeCollector,
		int64(updatedPolicy.FeeRate), updatedPolicy.UpdatedAt,
	)
	return err
}

func (f *feePolicyRepositoryImpl) getFeePolicy(
	ctx context.Context, query string,
) (*domain.FeePolicy, error) {
	var (
		feeRate int64
		policy  domain.FeePolicy
	)
	if err := f.querier(ctx).QueryRow(ctx, query).Scan(
		&policy.Admin, &policy.FeeCollector, &feeRate, &policy.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFeePolicyNotFound
		}
		return nil, err
	}
	policy.FeeRate = uint64(feeRate)
	return &policy, nil
}
