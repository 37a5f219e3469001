package application

import (
	"fmt"
	"time"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

// ProposeSwapRequest holds the arguments of a swap proposal. Counterparty is
// optional. A zero TTL selects the configured default.
type ProposeSwapRequest struct {
	Proposer       string
	Counterparty   string
	OfferedAsset   domain.Asset
	RequestedAsset domain.Asset
	TTL            time.Duration
}

// FeeInfo is the public view of the fee policy.
type FeeInfo struct {
	FeeRate      uint64
	FeeCollector string
	UpdatedAt    int64
}

// SweepResult reports the swaps brought to Expired by a sweep.
type SweepResult struct {
	ExpiredSwapIDs  []uint64
	ReleasedEntries int
}

// Webhook is the request to notify an endpoint of the swap events of the
// given kind. A non-empty Secret makes the daemon sign every request.
type Webhook struct {
	Event    string
	Endpoint string
	Secret   string
}

func (h Webhook) validate() error {
	if _, ok := WebhookEvents[h.Event]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidWebhookEvent, h.Event)
	}
	return validateWebhookEndpoint(h.Endpoint)
}

// WebhookInfo is the public view of a webhook. The secret is never exposed.
type WebhookInfo struct {
	ID        string
	Event     string
	Endpoint  string
	IsSecured bool
}
