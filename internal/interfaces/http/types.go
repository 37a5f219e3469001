package httpinterface

import (
	"math"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/tdex-network/nftswap-daemon/internal/core/application"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/pkg/mathutil"
)

type asset struct {
	CollectionID string `json:"collection_id"`
	TokenID      string `json:"token_id"`
}

func (a asset) Validate() error {
	return validation.ValidateStruct(
		&a,
		validation.Field(&a.CollectionID, validation.Required),
		validation.Field(&a.TokenID, validation.Required),
	)
}

func (a asset) toDomain() domain.Asset {
	return domain.Asset{CollectionID: a.CollectionID, TokenID: a.TokenID}
}

func newAsset(a domain.Asset) asset {
	return asset{a.CollectionID, a.TokenID}
}

// maxTTLSeconds is the largest ttl that converts to a time.Duration.
const maxTTLSeconds = int64(math.MaxInt64 / int64(time.Second))

type proposeSwapRequest struct {
	Proposer       string `json:"proposer"`
	Counterparty   string `json:"counterparty"`
	OfferedAsset   asset  `json:"offered_asset"`
	RequestedAsset asset  `json:"requested_asset"`
	TTLSeconds     int64  `json:"ttl_seconds"`
}

func (r proposeSwapRequest) Validate() error {
	return validation.ValidateStruct(
		&r,
		validation.Field(&r.Proposer, validation.Required),
		validation.Field(&r.OfferedAsset),
		validation.Field(&r.RequestedAsset),
		validation.Field(
			&r.TTLSeconds,
			validation.Min(int64(0)), validation.Max(maxTTLSeconds),
		),
	)
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (r callerRequest) Validate() error {
	return validation.ValidateStruct(
		&r,
		validation.Field(&r.Caller, validation.Required),
	)
}

// setFeeRateRequest carries the new rate either in the smallest unit of the
// payment token or as a decimal amount.
type setFeeRateRequest struct {
	FeeRate   *uint64 `json:"fee_rate"`
	FeeAmount string  `json:"fee_amount"`
}

func (r setFeeRateRequest) Validate() error {
	return validation.ValidateStruct(
		&r,
		validation.Field(
			&r.FeeRate,
			validation.When(len(r.FeeAmount) <= 0, validation.NotNil),
		),
		validation.Field(
			&r.FeeAmount,
			validation.When(r.FeeRate != nil, validation.Empty.Error(
				"must be blank if fee_rate is set",
			)),
		),
	)
}

func (r setFeeRateRequest) rate(precision uint) (uint64, error) {
	if r.FeeRate != nil {
		return *r.FeeRate, nil
	}
	return mathutil.ParseAmount(r.FeeAmount, precision)
}

type setFeeCollectorRequest struct {
	FeeCollector string `json:"fee_collector"`
}

func (r setFeeCollectorRequest) Validate() error {
	return validation.ValidateStruct(
		&r,
		validation.Field(&r.FeeCollector, validation.Required),
	)
}

type feeResponse struct {
	FeeRate      uint64 `json:"fee_rate"`
	FeeAmount    string `json:"fee_amount"`
	FeeCollector string `json:"fee_collector"`
	UpdatedAt    int64  `json:"updated_at"`
}

func newFeeResponse(info *application.FeeInfo, precision uint) feeResponse {
	return feeResponse{
		FeeRate:      info.FeeRate,
		FeeAmount:    mathutil.FormatAmount(info.FeeRate, precision),
		FeeCollector: info.FeeCollector,
		UpdatedAt:    info.UpdatedAt,
	}
}

type swapResponse struct {
	ID              uint64   `json:"id"`
	Proposer        string   `json:"proposer"`
	Counterparty    string   `json:"counterparty,omitempty"`
	OfferedAsset    asset    `json:"offered_asset"`
	RequestedAsset  asset    `json:"requested_asset"`
	Status          string   `json:"status"`
	FeeRateSnapshot uint64   `json:"fee_rate_snapshot"`
	FeeOwed         string   `json:"fee_owed"`
	CreatedAt       int64    `json:"created_at"`
	ExpiresAt       int64    `json:"expires_at"`
	AcceptedAt      int64    `json:"accepted_at,omitempty"`
	ClosedAt        int64    `json:"closed_at,omitempty"`
	CancelConsents  []string `json:"cancel_consents,omitempty"`
}

func newSwapResponse(s domain.Swap, precision uint) swapResponse {
	return swapResponse{
		ID:              s.ID,
		Proposer:        s.Proposer,
		Counterparty:    s.Counterparty,
		OfferedAsset:    newAsset(s.OfferedAsset),
		RequestedAsset:  newAsset(s.RequestedAsset),
		Status:          s.Status.String(),
		FeeRateSnapshot: s.FeeRateSnapshot,
		FeeOwed:         mathutil.FormatAmount(s.FeeOwed(), precision),
		CreatedAt:       s.CreatedAt,
		ExpiresAt:       s.ExpiresAt,
		AcceptedAt:      s.AcceptedAt,
		ClosedAt:        s.ClosedAt,
		CancelConsents:  s.CancelConsents,
	}
}

type listSwapsResponse struct {
	Swaps []swapResponse `json:"swaps"`
}

type swapEventResponse struct {
	Seq       uint64 `json:"seq"`
	Type      string `json:"type"`
	Actor     string `json:"actor,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type swapHistoryResponse struct {
	SwapID uint64              `json:"swap_id"`
	Events []swapEventResponse `json:"events"`
}

func newSwapHistoryResponse(
	swapID uint64, events []domain.SwapEvent,
) swapHistoryResponse {
	res := swapHistoryResponse{
		SwapID: swapID,
		Events: make([]swapEventResponse, 0, len(events)),
	}
	for _, e := range events {
		res.Events = append(res.Events, swapEventResponse{
			Seq:       e.Seq,
			Type:      string(e.Type),
			Actor:     e.Actor,
			Status:    e.Status.String(),
			Reason:    e.Reason,
			Timestamp: e.Timestamp,
		})
	}
	return res
}

type custodyEntryResponse struct {
	SwapID        uint64 `json:"swap_id"`
	Asset         asset  `json:"asset"`
	OriginalOwner string `json:"original_owner"`
	LockedAt      int64  `json:"locked_at"`
}

type listCustodyResponse struct {
	Entries []custodyEntryResponse `json:"entries"`
}

func newListCustodyResponse(entries []domain.EscrowEntry) listCustodyResponse {
	res := listCustodyResponse{
		Entries: make([]custodyEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		res.Entries = append(res.Entries, custodyEntryResponse{
			SwapID:        e.SwapID,
			Asset:         newAsset(e.Asset),
			OriginalOwner: e.OriginalOwner,
			LockedAt:      e.LockedAt,
		})
	}
	return res
}

type sweepResponse struct {
	ExpiredSwapIDs  []uint64 `json:"expired_swap_ids"`
	ReleasedEntries int      `json:"released_entries"`
}

type addWebhookRequest struct {
	Event    string `json:"event"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

func (r addWebhookRequest) Validate() error {
	return validation.ValidateStruct(
		&r,
		validation.Field(&r.Event, validation.Required),
		validation.Field(&r.Endpoint, validation.Required, is.RequestURL),
	)
}

type addWebhookResponse struct {
	ID string `json:"id"`
}

type webhookResponse struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Endpoint  string `json:"endpoint"`
	IsSecured bool   `json:"is_secured"`
}

type listWebhooksResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
}

func newListWebhooksResponse(hooks []application.WebhookInfo) listWebhooksResponse {
	res := listWebhooksResponse{
		Webhooks: make([]webhookResponse, 0, len(hooks)),
	}
	for _, h := range hooks {
		res.Webhooks = append(res.Webhooks, webhookResponse{
			ID:        h.ID,
			Event:     h.Event,
			Endpoint:  h.Endpoint,
			IsSecured: h.IsSecured,
		})
	}
	return res
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
