package domain

// Swap is the data structure representing a proposed exchange of two
// non-fungible assets between a proposer and a counterparty.
// Timestamps are unix seconds.
type Swap struct {
	ID              uint64
	Proposer        string
	Counterparty    string
	OfferedAsset    Asset
	RequestedAsset  Asset
	FeeRateSnapshot uint64
	Status          SwapStatus
	CreatedAt       int64
	ExpiresAt       int64
	AcceptedAt      int64
	ClosedAt        int64
	CancelConsents  []string
}

// NewSwap returns a swap in Proposed status. The id is assigned by the
// repository when the swap is added. counterparty may be empty, in which
// case anyone owning the requested asset can accept.
func NewSwap(
	proposer, counterparty string,
	offeredAsset, requestedAsset Asset,
	feeRate uint64, createdAt, ttl int64,
) (*Swap, error) {
	if len(proposer) <= 0 {
		return nil, ErrInvalidParty
	}
	if proposer == counterparty {
		return nil, ErrSelfSwap
	}
	if err := offeredAsset.Validate(); err != nil {
		return nil, err
	}
	if err := requestedAsset.Validate(); err != nil {
		return nil, err
	}
	if offeredAsset == requestedAsset {
		return nil, ErrSameAsset
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	return &Swap{
		Proposer:        proposer,
		Counterparty:    counterparty,
		OfferedAsset:    offeredAsset,
		RequestedAsset:  requestedAsset,
		FeeRateSnapshot: feeRate,
		Status:          SwapStatusProposed,
		CreatedAt:       createdAt,
		ExpiresAt:       createdAt + ttl,
	}, nil
}

// ResolveStatus returns the effective status of the swap at the given time
// without mutating it: an active swap past its expiration date is Expired.
func (s *Swap) ResolveStatus(now int64) SwapStatus {
	if s.Status.IsActive() && now > s.ExpiresAt {
		return SwapStatusExpired
	}
	return s.Status
}

// IsExpiredAt returns whether the swap must be brought to Expired status
// before serving any request at the given time.
func (s *Swap) IsExpiredAt(now int64) bool {
	return s.Status.IsActive() && s.ResolveStatus(now) == SwapStatusExpired
}

// Accept binds the counterparty and brings the swap from Proposed to
// Accepted status.
func (s *Swap) Accept(caller string, now int64) error {
	if s.Status != SwapStatusProposed {
		return ErrInvalidSwapState
	}
	if s.IsExpiredAt(now) {
		return ErrSwapExpired
	}
	if len(caller) <= 0 {
		return ErrInvalidParty
	}
	if caller == s.Proposer {
		return ErrSelfSwap
	}
	if len(s.Counterparty) > 0 && caller != s.Counterparty {
		return ErrUnauthorized
	}

	s.Counterparty = caller
	s.AcceptedAt = now
	s.Status = SwapStatusAccepted
	return nil
}

// Settle brings the swap from Accepted to the terminal Settled status. Either
// party can trigger the settlement.
func (s *Swap) Settle(caller string, now int64) error {
	if err := s.CanSettle(caller, now); err != nil {
		return err
	}

	s.Status = SwapStatusSettled
	s.ClosedAt = now
	return nil
}

// CanSettle checks the preconditions of Settle without changing the swap.
func (s *Swap) CanSettle(caller string, now int64) error {
	if s.Status.IsTerminal() {
		return ErrInvalidSwapState
	}
	if s.IsExpiredAt(now) {
		return ErrSwapExpired
	}
	if !s.IsParty(caller) {
		return ErrUnauthorized
	}
	if s.Status != SwapStatusAccepted {
		return ErrInvalidSwapState
	}
	return nil
}

// Cancel records the caller's will to cancel the swap and returns whether
// the swap reached the Cancelled status. While Proposed, only the proposer
// has committed an asset and can cancel alone; once Accepted, both parties
// must consent.
func (s *Swap) Cancel(caller string, now int64) (bool, error) {
	if s.Status.IsTerminal() {
		return false, ErrInvalidSwapState
	}
	if s.IsExpiredAt(now) {
		return false, ErrSwapExpired
	}

	switch s.Status {
	case SwapStatusProposed:
		if caller != s.Proposer {
			return false, ErrUnauthorized
		}
	case SwapStatusAccepted:
		if !s.IsParty(caller) {
			return false, ErrUnauthorized
		}
		s.addCancelConsent(caller)
		if !s.HasCancelConsent(s.Proposer) || !s.HasCancelConsent(s.Counterparty) {
			return false, nil
		}
	default:
		return false, ErrInvalidSwapState
	}

	s.Status = SwapStatusCancelled
	s.ClosedAt = now
	return true, nil
}

// Expire brings an active swap to the terminal Expired status. The
// expiration date must have passed.
func (s *Swap) Expire(now int64) (bool, error) {
	if s.Status == SwapStatusExpired {
		return true, nil
	}
	if !s.Status.IsActive() {
		return false, ErrInvalidSwapState
	}
	if now <= s.ExpiresAt {
		return false, ErrSwapExpiryNotReached
	}

	s.Status = SwapStatusExpired
	s.ClosedAt = now
	return true, nil
}

// IsParty returns whether the account is the proposer or the bound
// counterparty of the swap.
func (s *Swap) IsParty(account string) bool {
	if len(account) <= 0 {
		return false
	}
	return account == s.Proposer || account == s.Counterparty
}

// HasCancelConsent returns whether the account already asked to cancel.
func (s *Swap) HasCancelConsent(account string) bool {
	for _, a := range s.CancelConsents {
		if a == account {
			return true
		}
	}
	return false
}

// FeeOwed returns the fee to be collected on settlement.
func (s *Swap) FeeOwed() uint64 {
	return ComputeFee(s.FeeRateSnapshot)
}

// CommittedAssets returns the assets that are expected to be in custody for
// the current status, each paired with its owner.
func (s *Swap) CommittedAssets() []EscrowEntry {
	entries := make([]EscrowEntry, 0, 2)
	if !s.Status.IsActive() {
		return entries
	}
	entries = append(entries, EscrowEntry{
		SwapID: s.ID, Asset: s.OfferedAsset, OriginalOwner: s.Proposer,
		CustodyHeld: true,
	})
	if s.Status == SwapStatusAccepted {
		entries = append(entries, EscrowEntry{
			SwapID: s.ID, Asset: s.RequestedAsset, OriginalOwner: s.Counterparty,
			CustodyHeld: true,
		})
	}
	return entries
}

func (s *Swap) addCancelConsent(account string) {
	if s.HasCancelConsent(account) {
		return
	}
	s.CancelConsents = append(s.CancelConsents, account)
}
