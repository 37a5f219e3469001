package application

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
)

// escrowManager owns the custody of the assets committed to active swaps.
// A committed asset is moved into the escrow account on the ledger, that
// only the daemon controls, and leaves it when the swap is settled,
// cancelled or expired. A custody entry exists as long as the asset might
// be in escrow. Moves out of escrow look at the ledger first, so they can
// be repeated after a failure without moving an asset twice.
type escrowManager struct {
	repoManager ports.RepoManager
	ledger      ports.Ledger
	account     string
}

// deposits tracks the assets moved into escrow by a single request, by
// asset key. It outlives the retries of the transaction handler, so that a
// retried handler does not deposit twice and a failed request can return
// what it deposited.
type deposits map[string]domain.EscrowEntry

// lock takes custody of the asset for the swap: it records the entry and
// moves the asset from owner to the escrow account. It is expected to run
// within a transaction bound to ctx. If the transaction fails, the caller
// must refund deps.
func (m *escrowManager) lock(
	ctx context.Context,
	swapID uint64, asset domain.Asset, owner string, now int64, deps deposits,
) error {
	repo := m.repoManager.EscrowRepository()

	// Assets in custody belong to the escrow account, the entry must be
	// looked up before asking the ledger.
	current, err := repo.GetEntryByAsset(ctx, asset)
	if err != nil {
		return err
	}
	if current != nil {
		return fmt.Errorf("%w: %s", domain.ErrAssetAlreadyLocked, asset)
	}

	entry, err := domain.NewEscrowEntry(swapID, asset, owner, now)
	if err != nil {
		return err
	}

	if d, ok := deps[entry.AssetKey]; !ok || d.OriginalOwner != owner {
		owned, err := m.ledger.VerifyOwnership(ctx, asset, owner)
		if err != nil {
			return fmt.Errorf("failed to verify ownership of %s: %w", asset, err)
		}
		if !owned {
			return fmt.Errorf("%w: %s", domain.ErrNotOwner, asset)
		}
	}

	if err := repo.AddEntry(ctx, *entry); err != nil {
		if errors.Is(err, domain.ErrAssetAlreadyLocked) {
			return fmt.Errorf("%w: %s", domain.ErrAssetAlreadyLocked, asset)
		}
		return err
	}

	if _, ok := deps[entry.AssetKey]; ok {
		return nil
	}
	if err := m.ledger.Transfer(ctx, asset, owner, m.account); err != nil {
		return transferError(asset, m.account, err)
	}
	deps[entry.AssetKey] = *entry
	return nil
}

// refund returns the assets deposited by a failed request to their owners.
func (m *escrowManager) refund(deps deposits) {
	// The caller's context might be the reason of the failure.
	ctx := context.Background()

	for _, e := range deps {
		if _, err := m.withdraw(ctx, e.Asset, e.OriginalOwner); err != nil {
			log.WithError(err).Errorf(
				"failed to return %s to %s, the asset is held by %s",
				e.Asset, e.OriginalOwner, m.account,
			)
			continue
		}
		log.Debugf("returned %s to %s", e.Asset, e.OriginalOwner)
	}
}

// release clears the custody entries of the swap and moves the assets out
// of escrow: back to their original owners or, if the settlement of the
// swap already started, to the other party, completing the exchange. It is
// expected to run within a transaction bound to ctx. Releasing a swap
// without entries is a no-op, as is moving an asset no longer in escrow.
func (m *escrowManager) release(ctx context.Context, swapID uint64) (int, error) {
	repo := m.repoManager.EscrowRepository()

	entries, err := repo.GetEntriesBySwap(ctx, swapID)
	if err != nil {
		return 0, err
	}
	if len(entries) <= 0 {
		return 0, nil
	}

	started, err := m.settlementStarted(ctx, swapID)
	if err != nil {
		return 0, err
	}

	recipients := make([]string, 0, len(entries))
	for _, e := range entries {
		recipients = append(recipients, e.OriginalOwner)
	}
	if started && len(entries) == 2 {
		log.Warnf("swap %d: completing interrupted settlement", swapID)
		recipients[0], recipients[1] = recipients[1], recipients[0]
	}

	for i, e := range entries {
		moved, err := m.withdraw(ctx, e.Asset, recipients[i])
		if err != nil {
			return 0, err
		}
		if !moved {
			log.Debugf(
				"swap %d: %s is not held in escrow, nothing to move",
				swapID, e.Asset,
			)
		}
	}

	return repo.DeleteEntriesBySwap(ctx, swapID)
}

// settlementStarted returns whether an attempt to settle the swap got past
// the collection of the fee.
func (m *escrowManager) settlementStarted(
	ctx context.Context, swapID uint64,
) (bool, error) {
	events, err := m.repoManager.SwapEventRepository().GetEventsForSwap(
		ctx, swapID,
	)
	if err != nil {
		return false, err
	}
	for _, e := range events {
		if e.Type == domain.SwapEventSettleStarted {
			return true, nil
		}
	}
	return false, nil
}

// clear drops the custody entries of a swap whose assets have been
// delivered.
func (m *escrowManager) clear(ctx context.Context, swapID uint64) (int, error) {
	return m.repoManager.EscrowRepository().DeleteEntriesBySwap(ctx, swapID)
}

// withdraw moves the asset from the escrow account to the given account,
// unless escrow does not hold it anymore.
func (m *escrowManager) withdraw(
	ctx context.Context, asset domain.Asset, to string,
) (bool, error) {
	held, err := m.ledger.VerifyOwnership(ctx, asset, m.account)
	if err != nil {
		return false, fmt.Errorf("failed to verify custody of %s: %w", asset, err)
	}
	if !held {
		return false, nil
	}
	if err := m.ledger.Transfer(ctx, asset, m.account, to); err != nil {
		return false, transferError(asset, to, err)
	}
	return true, nil
}

// settlement carries what transferOut needs beyond the swap and its
// custody entries.
type settlement struct {
	feeCollector string
	// start durably records that the fee is collected. No asset leaves
	// escrow unless it succeeds.
	start func() error
	// commit persists the outcome once both assets are delivered.
	commit func() error
}

// transferOut executes the settlement of an accepted swap on the ledger:
// the fee is moved from the proposer to the collector and the start of the
// settlement is recorded, then each asset is delivered from escrow to the
// other party, and finally the outcome is committed.
// Nothing is reverted on failure. Before the start is recorded no asset has
// moved. After, the swap can only be settled: it stays Accepted with its
// custody entries and a later attempt delivers what is still in escrow,
// without charging the fee again.
func (m *escrowManager) transferOut(
	ctx context.Context,
	swap *domain.Swap, entries []domain.EscrowEntry, s settlement,
) error {
	offered, requested, err := pairEntries(swap, entries)
	if err != nil {
		return err
	}

	started, err := m.settlementStarted(ctx, swap.ID)
	if err != nil {
		return err
	}

	deliveries := []delivery{
		{offered.Asset, requested.OriginalOwner},
		{requested.Asset, offered.OriginalOwner},
	}

	// Both assets must be accounted for before anything moves.
	pending := make([]delivery, 0, len(deliveries))
	for _, d := range deliveries {
		held, err := m.ledger.VerifyOwnership(ctx, d.asset, m.account)
		if err != nil {
			return fmt.Errorf("failed to verify custody of %s: %w", d.asset, err)
		}
		if held {
			pending = append(pending, d)
			continue
		}
		if !started {
			return fmt.Errorf(
				"%w: %s is not held in escrow", domain.ErrTransferRejected, d.asset,
			)
		}
		log.Debugf("swap %d: %s already delivered to %s", swap.ID, d.asset, d.to)
	}

	if !started {
		fee := swap.FeeOwed()
		if err := m.payFee(
			ctx, offered.OriginalOwner, s.feeCollector, fee,
		); err != nil {
			return err
		}
		if err := s.start(); err != nil {
			log.WithError(err).Errorf(
				"swap %d: fee of %d paid by %s but settlement start not recorded",
				swap.ID, fee, offered.OriginalOwner,
			)
			return err
		}
	}

	for _, d := range pending {
		if err := m.ledger.Transfer(ctx, d.asset, m.account, d.to); err != nil {
			log.WithError(err).Warnf(
				"swap %d: failed to deliver %s to %s, settle again to complete",
				swap.ID, d.asset, d.to,
			)
			return transferError(d.asset, d.to, err)
		}
	}

	if err := s.commit(); err != nil {
		log.WithError(err).Errorf(
			"swap %d: assets delivered but settlement not persisted", swap.ID,
		)
		return err
	}
	return nil
}

type delivery struct {
	asset domain.Asset
	to    string
}

func (m *escrowManager) payFee(
	ctx context.Context, payer, collector string, fee uint64,
) error {
	if fee == 0 {
		return nil
	}

	balance, err := m.ledger.Balance(ctx, payer)
	if err != nil {
		return fmt.Errorf("failed to get balance of %s: %w", payer, err)
	}
	if balance < fee {
		return fmt.Errorf(
			"%w: balance of %s is %d, fee is %d",
			domain.ErrFeeNotPaid, payer, balance, fee,
		)
	}

	if err := m.ledger.Pay(ctx, payer, collector, fee); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFeeNotPaid, err)
	}
	return nil
}

// pairEntries returns the custody entries of the offered and requested
// assets of the swap.
func pairEntries(
	swap *domain.Swap, entries []domain.EscrowEntry,
) (*domain.EscrowEntry, *domain.EscrowEntry, error) {
	var offered, requested *domain.EscrowEntry
	for i := range entries {
		e := &entries[i]
		switch e.Asset {
		case swap.OfferedAsset:
			offered = e
		case swap.RequestedAsset:
			requested = e
		}
	}
	if offered == nil || requested == nil {
		return nil, nil, fmt.Errorf(
			"%w: swap %d is missing custody entries",
			domain.ErrInvalidSwapState, swap.ID,
		)
	}
	return offered, requested, nil
}

func transferError(asset domain.Asset, to string, err error) error {
	if errors.Is(err, domain.ErrTransferRejected) {
		return err
	}
	return fmt.Errorf(
		"%w: transfer of %s to %s failed: %w",
		domain.ErrTransferRejected, asset, to, err,
	)
}
