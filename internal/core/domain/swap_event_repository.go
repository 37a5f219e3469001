package domain

import "context"

// SwapEventRepository is the append-only history of swap transitions.
type SwapEventRepository interface {
	AddEvents(ctx context.Context, events ...SwapEvent) error
	GetEventsForSwap(ctx context.Context, swapID uint64) ([]SwapEvent, error)
	GetAllEvents(ctx context.Context) ([]SwapEvent, error)
}
