package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
)

// FeeService exposes the administrator-owned fee policy.
type FeeService interface {
	GetFeeRate(ctx context.Context) (uint64, error)
	GetFeeInfo(ctx context.Context) (*FeeInfo, error)
	SetFeeRate(ctx context.Context, caller string, rate uint64) error
	SetFeeCollector(ctx context.Context, caller, collector string) error
}

type feeService struct {
	repoManager ports.RepoManager
	now         func() time.Time
}

// NewFeeService makes sure a fee policy exists, creating it with the given
// initial rate otherwise. An existing policy keeps its rate and collector so
// that restarts do not override administrative changes.
func NewFeeService(
	repoManager ports.RepoManager,
	admin, feeCollector string, initialFeeRate uint64,
	now func() time.Time,
) (FeeService, error) {
	if repoManager == nil {
		return nil, ErrMissingRepoManager
	}
	if now == nil {
		now = time.Now
	}

	policy, err := domain.NewFeePolicy(admin, initialFeeRate)
	if err != nil {
		return nil, err
	}
	if len(feeCollector) > 0 {
		policy.FeeCollector = feeCollector
	}
	policy.UpdatedAt = now().Unix()

	ctx := context.Background()
	if _, err := repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			repo := repoManager.FeePolicyRepository()

			stored, err := repo.GetFeePolicy(ctx)
			if err != nil {
				if !errors.Is(err, domain.ErrFeePolicyNotFound) {
					return nil, err
				}
				log.Infof("initializing fee policy with rate %d", policy.FeeRate)
				return nil, repo.AddFeePolicy(ctx, *policy)
			}

			if stored.Admin == admin {
				return nil, nil
			}
			log.Warnf(
				"fee policy administrator changed from %s to %s",
				stored.Admin, admin,
			)
			return nil, repo.UpdateFeePolicy(
				ctx, func(p *domain.FeePolicy) (*domain.FeePolicy, error) {
					p.Admin = admin
					p.UpdatedAt = policy.UpdatedAt
					return p, nil
				},
			)
		},
	); err != nil {
		return nil, fmt.Errorf("failed to initialize fee policy: %w", err)
	}

	return &feeService{repoManager, now}, nil
}

func (s *feeService) GetFeeRate(ctx context.Context) (uint64, error) {
	policy, err := s.repoManager.FeePolicyRepository().GetFeePolicy(ctx)
	if err != nil {
		return 0, err
	}
	return policy.GetFeeRate(), nil
}

func (s *feeService) GetFeeInfo(ctx context.Context) (*FeeInfo, error) {
	policy, err := s.repoManager.FeePolicyRepository().GetFeePolicy(ctx)
	if err != nil {
		return nil, err
	}
	return &FeeInfo{
		FeeRate:      policy.FeeRate,
		FeeCollector: policy.FeeCollector,
		UpdatedAt:    policy.UpdatedAt,
	}, nil
}

func (s *feeService) SetFeeRate(
	ctx context.Context, caller string, rate uint64,
) error {
	return s.updatePolicy(ctx, func(p *domain.FeePolicy) error {
		return p.SetFeeRate(caller, rate, s.now().Unix())
	})
}

func (s *feeService) SetFeeCollector(
	ctx context.Context, caller, collector string,
) error {
	return s.updatePolicy(ctx, func(p *domain.FeePolicy) error {
		return p.SetFeeCollector(caller, collector, s.now().Unix())
	})
}

func (s *feeService) updatePolicy(
	ctx context.Context, update func(p *domain.FeePolicy) error,
) error {
	_, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			return nil, s.repoManager.FeePolicyRepository().UpdateFeePolicy(
				ctx, func(p *domain.FeePolicy) (*domain.FeePolicy, error) {
					if err := update(p); err != nil {
						return nil, err
					}
					return p, nil
				},
			)
		},
	)
	if err != nil {
		return err
	}

	policy, _ := s.repoManager.FeePolicyRepository().GetFeePolicy(ctx)
	if policy != nil {
		log.Debugf(
			"fee policy updated: rate %d, collector %s",
			policy.FeeRate, policy.FeeCollector,
		)
	}
	return nil
}
