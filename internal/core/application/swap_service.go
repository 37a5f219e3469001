package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	"github.com/tdex-network/nftswap-daemon/pkg/stats"
)

// SwapService is the orchestrator of the swap lifecycle.
type SwapService interface {
	ProposeSwap(
		ctx context.Context, req ProposeSwapRequest,
	) (*domain.Swap, error)
	AcceptSwap(
		ctx context.Context, swapID uint64, caller string,
	) (*domain.Swap, error)
	SettleSwap(
		ctx context.Context, swapID uint64, caller string,
	) (*domain.Swap, error)
	// CancelSwap returns the swap as left by the request, which is still
	// Accepted if the other party did not consent yet.
	CancelSwap(
		ctx context.Context, swapID uint64, caller string,
	) (*domain.Swap, error)
	GetSwap(ctx context.Context, swapID uint64) (*domain.Swap, error)
	ListSwaps(
		ctx context.Context, filter domain.SwapFilter, page *domain.Page,
	) ([]domain.Swap, error)
	GetSwapHistory(
		ctx context.Context, swapID uint64,
	) ([]domain.SwapEvent, error)
	ListCustodyEntries(ctx context.Context) ([]domain.EscrowEntry, error)
	// SweepExpired brings every active swap past its expiration date to
	// Expired, releasing the custody of its assets.
	SweepExpired(ctx context.Context) (*SweepResult, error)
}

type swapService struct {
	repoManager ports.RepoManager
	escrow      *escrowManager
	locker      *swapLocker
	pubsub      ports.PubSub
	metrics     *stats.Metrics

	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
}

// NewSwapService returns the swap orchestrator. Assets in custody are held
// by escrowAccount on the ledger. pubsub and metrics can be nil.
func NewSwapService(
	repoManager ports.RepoManager, ledger ports.Ledger, pubsub ports.PubSub,
	escrowAccount string, defaultTTL, maxTTL time.Duration,
	metrics *stats.Metrics, now func() time.Time,
) (SwapService, error) {
	if repoManager == nil {
		return nil, ErrMissingRepoManager
	}
	if ledger == nil {
		return nil, ErrMissingLedger
	}
	if len(escrowAccount) <= 0 {
		return nil, ErrMissingEscrowAccount
	}
	if defaultTTL < time.Second {
		return nil, fmt.Errorf("default swap ttl must be at least 1s")
	}
	if maxTTL < defaultTTL {
		return nil, fmt.Errorf("max swap ttl must not be lower than default one")
	}
	if now == nil {
		now = time.Now
	}

	entries, err := repoManager.EscrowRepository().GetAllEntries(
		context.Background(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read custody entries: %w", err)
	}
	metrics.SetCustodyEntries(len(entries))

	return &swapService{
		repoManager: repoManager,
		escrow:      &escrowManager{repoManager, ledger, escrowAccount},
		locker:      newSwapLocker(),
		pubsub:      pubsub,
		metrics:     metrics,
		defaultTTL:  defaultTTL,
		maxTTL:      maxTTL,
		now:         now,
	}, nil
}

func (s *swapService) ProposeSwap(
	ctx context.Context, req ProposeSwapRequest,
) (*domain.Swap, error) {
	now := s.now().Unix()

	ttl, err := s.resolveTTL(req.TTL)
	if err != nil {
		return nil, s.fail("propose", err)
	}

	fx := &effects{}
	deps := deposits{}
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			*fx = effects{}

			policy, err := s.repoManager.FeePolicyRepository().GetFeePolicy(ctx)
			if err != nil {
				return nil, err
			}

			swap, err := domain.NewSwap(
				req.Proposer, req.Counterparty,
				req.OfferedAsset, req.RequestedAsset,
				policy.GetFeeRate(), now, ttl,
			)
			if err != nil {
				return nil, err
			}

			if err := s.reclaimExpiredCustody(
				ctx, swap.OfferedAsset, now, fx,
			); err != nil {
				return nil, err
			}

			if _, err := s.repoManager.SwapRepository().AddSwap(
				ctx, swap,
			); err != nil {
				return nil, err
			}

			if err := s.escrow.lock(
				ctx, swap.ID, swap.OfferedAsset, swap.Proposer, now, deps,
			); err != nil {
				return nil, err
			}
			fx.locked++

			if err := s.addEvent(
				ctx, swap, domain.SwapEventProposed, swap.Proposer, now, fx,
			); err != nil {
				return nil, err
			}
			return swap, nil
		},
	)
	if err != nil {
		s.escrow.refund(deps)
		return nil, s.fail("propose", err)
	}

	s.apply(fx)
	swap := res.(*domain.Swap)
	log.Debugf(
		"swap %d proposed by %s: %s for %s",
		swap.ID, swap.Proposer, swap.OfferedAsset, swap.RequestedAsset,
	)
	return swap, nil
}

func (s *swapService) AcceptSwap(
	ctx context.Context, swapID uint64, caller string,
) (*domain.Swap, error) {
	release := s.locker.acquire(swapID)
	defer release()

	now := s.now().Unix()

	swap, err := s.touchSwap(ctx, swapID, now)
	if err != nil {
		return nil, s.fail("accept", err)
	}

	// Check the transition before asking the ledger.
	check := *swap
	if err := check.Accept(caller, now); err != nil {
		return nil, s.fail("accept", err)
	}

	fx := &effects{}
	deps := deposits{}
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			*fx = effects{}

			if err := s.reclaimExpiredCustody(
				ctx, swap.RequestedAsset, now, fx,
			); err != nil {
				return nil, err
			}

			var accepted *domain.Swap
			if err := s.repoManager.SwapRepository().UpdateSwap(
				ctx, swapID, func(sw *domain.Swap) (*domain.Swap, error) {
					if err := sw.Accept(caller, now); err != nil {
						return nil, err
					}
					accepted = sw
					return sw, nil
				},
			); err != nil {
				return nil, err
			}

			if err := s.escrow.lock(
				ctx, swapID, accepted.RequestedAsset, caller, now, deps,
			); err != nil {
				return nil, err
			}
			fx.locked++

			if err := s.addEvent(
				ctx, accepted, domain.SwapEventAccepted, caller, now, fx,
			); err != nil {
				return nil, err
			}
			return accepted, nil
		},
	)
	if err != nil {
		s.escrow.refund(deps)
		return nil, s.fail("accept", err)
	}

	s.apply(fx)
	log.Debugf("swap %d accepted by %s", swapID, caller)
	return res.(*domain.Swap), nil
}

func (s *swapService) SettleSwap(
	ctx context.Context, swapID uint64, caller string,
) (*domain.Swap, error) {
	release := s.locker.acquire(swapID)
	defer release()

	now := s.now().Unix()

	swap, err := s.touchSwap(ctx, swapID, now)
	if err != nil {
		return nil, s.fail("settle", err)
	}
	if err := swap.CanSettle(caller, now); err != nil {
		return nil, s.fail("settle", err)
	}

	entries, err := s.repoManager.EscrowRepository().GetEntriesBySwap(
		ctx, swapID,
	)
	if err != nil {
		return nil, s.fail("settle", err)
	}
	policy, err := s.repoManager.FeePolicyRepository().GetFeePolicy(ctx)
	if err != nil {
		return nil, s.fail("settle", err)
	}

	fx := &effects{}
	var settled *domain.Swap
	commit := func() error {
		res, err := s.repoManager.RunTransaction(
			ctx, false, func(ctx context.Context) (interface{}, error) {
				*fx = effects{}

				var updated *domain.Swap
				if err := s.repoManager.SwapRepository().UpdateSwap(
					ctx, swapID, func(sw *domain.Swap) (*domain.Swap, error) {
						if err := sw.Settle(caller, now); err != nil {
							return nil, err
						}
						updated = sw
						return sw, nil
					},
				); err != nil {
					return nil, err
				}

				released, err := s.escrow.clear(ctx, swapID)
				if err != nil {
					return nil, err
				}
				fx.released += released

				if err := s.addEvent(
					ctx, updated, domain.SwapEventSettled, caller, now, fx,
				); err != nil {
					return nil, err
				}
				return updated, nil
			},
		)
		if err != nil {
			return err
		}
		settled = res.(*domain.Swap)
		return nil
	}

	if err := s.escrow.transferOut(ctx, swap, entries, settlement{
		feeCollector: policy.FeeCollector,
		start: func() error {
			return s.recordSettleStart(swap, caller, policy.FeeCollector, now)
		},
		commit: commit,
	}); err != nil {
		s.recordSettleFailure(swap, caller, now, err)
		return nil, s.fail("settle", err)
	}

	s.apply(fx)
	log.Debugf(
		"swap %d settled by %s, fee of %d paid to %s",
		swapID, caller, settled.FeeOwed(), policy.FeeCollector,
	)
	return settled, nil
}

func (s *swapService) CancelSwap(
	ctx context.Context, swapID uint64, caller string,
) (*domain.Swap, error) {
	release := s.locker.acquire(swapID)
	defer release()

	now := s.now().Unix()

	if _, err := s.touchSwap(ctx, swapID, now); err != nil {
		return nil, s.fail("cancel", err)
	}

	started, err := s.escrow.settlementStarted(ctx, swapID)
	if err != nil {
		return nil, s.fail("cancel", err)
	}
	if started {
		return nil, s.fail("cancel", fmt.Errorf(
			"%w: settlement of swap %d in progress, settle again to complete",
			domain.ErrInvalidSwapState, swapID,
		))
	}

	fx := &effects{}
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			*fx = effects{}

			var (
				updated   *domain.Swap
				cancelled bool
			)
			if err := s.repoManager.SwapRepository().UpdateSwap(
				ctx, swapID, func(sw *domain.Swap) (*domain.Swap, error) {
					ok, err := sw.Cancel(caller, now)
					if err != nil {
						return nil, err
					}
					cancelled = ok
					updated = sw
					return sw, nil
				},
			); err != nil {
				return nil, err
			}

			if !cancelled {
				if err := s.addEvent(
					ctx, updated, domain.SwapEventCancelRequested, caller, now, fx,
				); err != nil {
					return nil, err
				}
				return updated, nil
			}

			released, err := s.escrow.release(ctx, swapID)
			if err != nil {
				return nil, err
			}
			fx.released += released

			if err := s.addEvent(
				ctx, updated, domain.SwapEventCancelled, caller, now, fx,
			); err != nil {
				return nil, err
			}
			return updated, nil
		},
	)
	if err != nil {
		return nil, s.fail("cancel", err)
	}

	s.apply(fx)
	swap := res.(*domain.Swap)
	if swap.Status == domain.SwapStatusCancelled {
		log.Debugf("swap %d cancelled by %s", swapID, caller)
	} else {
		log.Debugf("swap %d: %s asked to cancel", swapID, caller)
	}
	return swap, nil
}

func (s *swapService) GetSwap(
	ctx context.Context, swapID uint64,
) (*domain.Swap, error) {
	swap, _, err := s.resolveSwap(ctx, swapID, s.now().Unix())
	if err != nil {
		return nil, err
	}
	return swap, nil
}

// ListSwaps reports the effective status of the swaps without persisting
// lazy expirations, which happen at the next touch of each record.
func (s *swapService) ListSwaps(
	ctx context.Context, filter domain.SwapFilter, page *domain.Page,
) ([]domain.Swap, error) {
	now := s.now().Unix()
	repo := s.repoManager.SwapRepository()

	switch filter.Status {
	case domain.SwapStatusUndefined,
		domain.SwapStatusSettled, domain.SwapStatusCancelled:
		swaps, err := repo.GetSwaps(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		for i := range swaps {
			swaps[i].Status = swaps[i].ResolveStatus(now)
		}
		return swaps, nil
	}

	// Active swaps might be expired, the status filter is applied to the
	// effective status instead.
	swaps, err := repo.GetSwaps(
		ctx, domain.SwapFilter{Party: filter.Party}, nil,
	)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Swap, 0, len(swaps))
	for _, sw := range swaps {
		sw.Status = sw.ResolveStatus(now)
		if sw.Status == filter.Status {
			filtered = append(filtered, sw)
		}
	}
	if page != nil {
		start, end := page.Bounds(len(filtered))
		filtered = filtered[start:end]
	}
	return filtered, nil
}

// GetSwapHistory expires the swap first if needed, so that the history
// ends with the expiration.
func (s *swapService) GetSwapHistory(
	ctx context.Context, swapID uint64,
) ([]domain.SwapEvent, error) {
	if _, _, err := s.resolveSwap(ctx, swapID, s.now().Unix()); err != nil {
		return nil, err
	}
	return s.repoManager.SwapEventRepository().GetEventsForSwap(ctx, swapID)
}

// ListCustodyEntries expires the swaps past their expiration date holding
// custody of some asset before listing the entries.
func (s *swapService) ListCustodyEntries(
	ctx context.Context,
) ([]domain.EscrowEntry, error) {
	repo := s.repoManager.EscrowRepository()
	now := s.now().Unix()

	entries, err := repo.GetAllEntries(ctx)
	if err != nil {
		return nil, err
	}

	expired := false
	visited := make(map[uint64]struct{})
	for _, e := range entries {
		if _, ok := visited[e.SwapID]; ok {
			continue
		}
		visited[e.SwapID] = struct{}{}

		_, ok, err := s.resolveSwap(ctx, e.SwapID, now)
		if err != nil {
			return nil, err
		}
		expired = expired || ok
	}
	if !expired {
		return entries, nil
	}
	return repo.GetAllEntries(ctx)
}

func (s *swapService) SweepExpired(ctx context.Context) (*SweepResult, error) {
	now := s.now().Unix()

	swaps, err := s.repoManager.SwapRepository().GetActiveSwaps(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{ExpiredSwapIDs: make([]uint64, 0)}
	for _, sw := range swaps {
		if !sw.IsExpiredAt(now) {
			continue
		}

		released, expired, err := s.sweepSwap(ctx, sw.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to expire swap %d: %w", sw.ID, err)
		}
		if expired {
			result.ExpiredSwapIDs = append(result.ExpiredSwapIDs, sw.ID)
			result.ReleasedEntries += released
		}
	}

	if len(result.ExpiredSwapIDs) > 0 {
		log.Infof(
			"sweep: expired %d swaps, released %d assets",
			len(result.ExpiredSwapIDs), result.ReleasedEntries,
		)
	}
	return result, nil
}

func (s *swapService) sweepSwap(
	ctx context.Context, swapID uint64, now int64,
) (int, bool, error) {
	release := s.locker.acquire(swapID)
	defer release()

	fx := &effects{}
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			*fx = effects{}
			return s.expireSwap(ctx, swapID, now, fx)
		},
	)
	if err != nil {
		return 0, false, err
	}

	s.apply(fx)
	swap := res.(*domain.Swap)
	expired := swap.Status == domain.SwapStatusExpired && len(fx.statuses) > 0
	return fx.released, expired, nil
}

// resolveSwap is loadSwap for callers not holding the lock of the swap.
func (s *swapService) resolveSwap(
	ctx context.Context, swapID uint64, now int64,
) (*domain.Swap, bool, error) {
	release := s.locker.acquire(swapID)
	defer release()

	return s.loadSwap(ctx, swapID, now)
}

// touchSwap loads the swap, expiring it if needed, for a request that
// mutates it. The request fails with ErrSwapExpired if it triggered the
// expiration.
func (s *swapService) touchSwap(
	ctx context.Context, swapID uint64, now int64,
) (*domain.Swap, error) {
	swap, expired, err := s.loadSwap(ctx, swapID, now)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, fmt.Errorf("%w: swap %d", domain.ErrSwapExpired, swapID)
	}
	return swap, nil
}

// loadSwap returns the swap with the given id. If the swap is past its
// expiration date it is brought to Expired and its custody released first.
// The returned flag reports whether this call made the swap expire.
// The caller must hold the lock of the swap.
func (s *swapService) loadSwap(
	ctx context.Context, swapID uint64, now int64,
) (*domain.Swap, bool, error) {
	swap, err := s.repoManager.SwapRepository().GetSwap(ctx, swapID)
	if err != nil {
		return nil, false, err
	}
	if !swap.IsExpiredAt(now) {
		return swap, false, nil
	}

	fx := &effects{}
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			*fx = effects{}
			return s.expireSwap(ctx, swapID, now, fx)
		},
	)
	if err != nil {
		return nil, false, err
	}

	s.apply(fx)
	return res.(*domain.Swap), true, nil
}

// reclaimExpiredCustody expires the swap holding custody of the asset, if
// any, when it is past its expiration date, so that the asset can be
// committed again without waiting for the holder to be touched.
func (s *swapService) reclaimExpiredCustody(
	ctx context.Context, asset domain.Asset, now int64, fx *effects,
) error {
	entry, err := s.repoManager.EscrowRepository().GetEntryByAsset(ctx, asset)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	holder, err := s.repoManager.SwapRepository().GetSwap(ctx, entry.SwapID)
	if err != nil {
		return err
	}
	if !holder.IsExpiredAt(now) {
		return nil
	}

	_, err = s.expireSwap(ctx, holder.ID, now, fx)
	return err
}

// expireSwap brings the swap to Expired and releases its custody entries
// within the transaction bound to ctx. Swaps already closed are returned
// unchanged.
func (s *swapService) expireSwap(
	ctx context.Context, swapID uint64, now int64, fx *effects,
) (*domain.Swap, error) {
	var (
		expired *domain.Swap
		changed bool
	)
	if err := s.repoManager.SwapRepository().UpdateSwap(
		ctx, swapID, func(sw *domain.Swap) (*domain.Swap, error) {
			expired = sw
			if !sw.Status.IsActive() {
				return sw, nil
			}
			if _, err := sw.Expire(now); err != nil {
				return nil, err
			}
			changed = true
			return sw, nil
		},
	); err != nil {
		return nil, err
	}
	if !changed {
		return expired, nil
	}

	released, err := s.escrow.release(ctx, swapID)
	if err != nil {
		return nil, err
	}
	fx.released += released

	if err := s.addEvent(
		ctx, expired, domain.SwapEventExpired, "", now, fx,
	); err != nil {
		return nil, err
	}

	log.Infof("swap %d expired, released %d assets", swapID, released)
	return expired, nil
}

func (s *swapService) addEvent(
	ctx context.Context, swap *domain.Swap,
	eventType domain.SwapEventType, actor string, now int64, fx *effects,
) error {
	event := domain.NewSwapEvent(swap, eventType, actor, now)
	if err := s.repoManager.SwapEventRepository().AddEvents(
		ctx, event,
	); err != nil {
		return err
	}
	if eventType != domain.SwapEventCancelRequested &&
		eventType != domain.SwapEventSettleStarted {
		fx.statuses = append(fx.statuses, swap.Status)
	}
	fx.events = append(fx.events, event)
	return nil
}

// recordSettleFailure appends the failure to the history of the swap. The
// swap is left unchanged.
func (s *swapService) recordSettleFailure(
	swap *domain.Swap, caller string, now int64, cause error,
) {
	event := domain.NewSwapEvent(swap, domain.SwapEventSettleFailed, caller, now)
	event.Reason = cause.Error()

	if _, err := s.repoManager.RunTransaction(
		context.Background(), false,
		func(ctx context.Context) (interface{}, error) {
			return nil, s.repoManager.SwapEventRepository().AddEvents(ctx, event)
		},
	); err != nil {
		log.WithError(err).Warnf(
			"swap %d: failed to record settlement failure", swap.ID,
		)
		return
	}
	go publishEvents(s.pubsub, []domain.SwapEvent{event})
}

func (s *swapService) recordSettleStart(
	swap *domain.Swap, caller, feeCollector string, now int64,
) error {
	event := domain.NewSwapEvent(swap, domain.SwapEventSettleStarted, caller, now)
	event.Reason = fmt.Sprintf(
		"fee of %d paid by %s to %s", swap.FeeOwed(), swap.Proposer, feeCollector,
	)

	if _, err := s.repoManager.RunTransaction(
		context.Background(), false,
		func(ctx context.Context) (interface{}, error) {
			return nil, s.repoManager.SwapEventRepository().AddEvents(ctx, event)
		},
	); err != nil {
		return err
	}
	go publishEvents(s.pubsub, []domain.SwapEvent{event})
	return nil
}

func (s *swapService) resolveTTL(ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > s.maxTTL || ttl < time.Second {
		return 0, fmt.Errorf(
			"%w: must be between 1s and %s", domain.ErrInvalidTTL, s.maxTTL,
		)
	}
	return int64(ttl / time.Second), nil
}

func (s *swapService) fail(operation string, err error) error {
	kind := ErrorKind(err)
	s.metrics.ObserveFailure(operation, kind)
	if kind == KindInternal {
		log.WithError(err).Warnf("%s failed", operation)
	} else {
		log.WithError(err).Debugf("%s failed", operation)
	}
	return err
}

func (s *swapService) apply(fx *effects) {
	for _, status := range fx.statuses {
		s.metrics.ObserveTransition(status.String())
	}
	s.metrics.AddCustodyEntries(fx.locked - fx.released)
	if s.pubsub != nil && len(fx.events) > 0 {
		go publishEvents(s.pubsub, fx.events)
	}
}

// effects collects what a committed transaction changed, to be reported
// once the transaction is committed.
type effects struct {
	locked   int
	released int
	statuses []domain.SwapStatus
	events   []domain.SwapEvent
}
