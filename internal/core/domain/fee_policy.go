package domain

const (
	// MaxFeeRate is the ceiling of the protocol fee.
	MaxFeeRate = uint64(1000)
)

// FeePolicy is the administrator-owned configuration of the protocol fee.
// The fee is flat: FeeRate is the absolute amount of payment token charged
// on every settled swap.
type FeePolicy struct {
	Admin        string
	FeeCollector string
	FeeRate      uint64
	UpdatedAt    int64
}

// NewFeePolicy returns a policy owned by admin with the given initial rate.
// Fees are routed to the admin account unless a collector is set later.
func NewFeePolicy(admin string, initialFeeRate uint64) (*FeePolicy, error) {
	if len(admin) <= 0 {
		return nil, ErrInvalidParty
	}
	if !isValidFeeRate(initialFeeRate) {
		return nil, ErrInvalidFeeRate
	}
	return &FeePolicy{
		Admin:        admin,
		FeeCollector: admin,
		FeeRate:      initialFeeRate,
	}, nil
}

// SetFeeRate changes the rate applied to future proposals.
func (p *FeePolicy) SetFeeRate(caller string, rate uint64, now int64) error {
	if !p.IsAdmin(caller) {
		return ErrUnauthorized
	}
	if !isValidFeeRate(rate) {
		return ErrInvalidFeeRate
	}
	p.FeeRate = rate
	p.UpdatedAt = now
	return nil
}

// SetFeeCollector changes the account settlement fees are routed to.
func (p *FeePolicy) SetFeeCollector(caller, collector string, now int64) error {
	if !p.IsAdmin(caller) {
		return ErrUnauthorized
	}
	if len(collector) <= 0 {
		return ErrInvalidParty
	}
	p.FeeCollector = collector
	p.UpdatedAt = now
	return nil
}

// GetFeeRate returns the current rate.
func (p *FeePolicy) GetFeeRate() uint64 {
	return p.FeeRate
}

// IsAdmin returns whether the given account administers the policy.
func (p *FeePolicy) IsAdmin(account string) bool {
	return len(account) > 0 && account == p.Admin
}

// ComputeFee returns the fee owed for a swap proposed when the rate was
// snapshot. Without a pricing source the fee does not depend on the assets.
func ComputeFee(feeRateSnapshot uint64) uint64 {
	return feeRateSnapshot
}

func isValidFeeRate(rate uint64) bool {
	return rate <= MaxFeeRate
}
