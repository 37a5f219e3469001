package postgresdb

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

const (
	eventColumns = "seq, id, swap_id, type, actor, status, reason, timestamp"

	insertEventQuery = `INSERT INTO swap_event (id, swap_id, type, actor,
	status, reason, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectEventsForSwapQuery = "SELECT " + eventColumns +
		" FROM swap_event WHERE swap_id = $1 ORDER BY seq"
	selectAllEventsQuery = "SELECT " + eventColumns +
		" FROM swap_event ORDER BY seq"
)

type swapEventRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

func newSwapEventRepositoryImpl(
	querier func(ctx context.Context) querier,
) domain.SwapEventRepository {
	return &swapEventRepositoryImpl{querier}
}

func (r *swapEventRepositoryImpl) AddEvents(
	ctx context.Context, events ...domain.SwapEvent,
) error {
	q := r.querier(ctx)
	for _, e := range events {
		if _, err := q.Exec(
			ctx, insertEventQuery,
			e.ID, int64(e.SwapID), string(e.Type), e.Actor, int32(e.Status),
			e.Reason, e.Timestamp,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *swapEventRepositoryImpl) GetEventsForSwap(
	ctx context.Context, swapID uint64,
) ([]domain.SwapEvent, error) {
	rows, err := r.querier(ctx).Query(
		ctx, selectEventsForSwapQuery, int64(swapID),
	)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (r *swapEventRepositoryImpl) GetAllEvents(
	ctx context.Context,
) ([]domain.SwapEvent, error) {
	rows, err := r.querier(ctx).Query(ctx, selectAllEventsQuery)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]domain.SwapEvent, error) {
	defer rows.Close()

	events := make([]domain.SwapEvent, 0)
	for rows.Next() {
		var (
			seq, swapID int64
			eventType   string
			status      int32
			e           domain.SwapEvent
		)
		if err := rows.Scan(
			&seq, &e.ID, &swapID, &eventType, &e.Actor, &status, &e.Reason,
			&e.Timestamp,
		); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.SwapID = uint64(swapID)
		e.Type = domain.SwapEventType(eventType)
		e.Status = domain.SwapStatus(status)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
