package domain

import "github.com/google/uuid"

// SwapEventType identifies the transition recorded by a SwapEvent.
type SwapEventType string

const (
	SwapEventProposed        SwapEventType = "proposed"
	SwapEventAccepted        SwapEventType = "accepted"
	SwapEventSettled         SwapEventType = "settled"
	SwapEventCancelRequested SwapEventType = "cancel_requested"
	SwapEventCancelled       SwapEventType = "cancelled"
	SwapEventExpired         SwapEventType = "expired"
	SwapEventSettleFailed    SwapEventType = "settle_failed"
	// SwapEventSettleStarted is recorded once the fee is collected, before
	// any asset leaves escrow. From then on the swap can only be settled.
	SwapEventSettleStarted SwapEventType = "settle_started"
)

// SwapEvent is one immutable entry of the swap history log. Seq is assigned
// by the repository and orders events globally.
type SwapEvent struct {
	ID        string
	Seq       uint64
	SwapID    uint64
	Type      SwapEventType
	Actor     string
	Status    SwapStatus
	Reason    string
	Timestamp int64
}

// NewSwapEvent returns an event snapshotting the current status of swap.
func NewSwapEvent(
	swap *Swap, eventType SwapEventType, actor string, timestamp int64,
) SwapEvent {
	return SwapEvent{
		ID:        uuid.New().String(),
		SwapID:    swap.ID,
		Type:      eventType,
		Actor:     actor,
		Status:    swap.Status,
		Timestamp: timestamp,
	}
}
