package postgresdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

const (
	swapColumns = `id, proposer, counterparty, offered_collection, offered_token,
	requested_collection, requested_token, fee_rate_snapshot, status,
	created_at, expires_at, accepted_at, closed_at, cancel_consents`

	insertSwapQuery = `INSERT INTO swap (proposer, counterparty,
	offered_collection, offered_token, requested_collection, requested_token,
	fee_rate_snapshot, status, created_at, expires_at, accepted_at, closed_at,
	cancel_consents) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
	$13) RETURNING id`
	updateSwapQuery = `UPDATE swap SET status = $2, accepted_at = $3,
	closed_at = $4, cancel_consents = $5 WHERE id = $1`
	selectSwapQuery          = "SELECT " + swapColumns + " FROM swap WHERE id = $1"
	selectSwapForUpdateQuery = selectSwapQuery + " FOR UPDATE"
	selectSwapsQuery         = `SELECT ` + swapColumns + ` FROM swap
	WHERE ($1 = '' OR proposer = $1 OR counterparty = $1)
	AND ($2 = 0 OR status = $2) ORDER BY id`
	selectSwapsPageQuery   = selectSwapsQuery + " LIMIT $3 OFFSET $4"
	selectActiveSwapsQuery = `SELECT ` + swapColumns + ` FROM swap
	WHERE status IN ($1, $2) ORDER BY id`
)

type swapRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

func newSwapRepositoryImpl(
	querier func(ctx context.Context) querier,
) domain.SwapRepository {
	return &swapRepositoryImpl{querier}
}

func (s *swapRepositoryImpl) AddSwap(
	ctx context.Context, swap *domain.Swap,
) (uint64, error) {
	consents := swap.CancelConsents
	if consents == nil {
		consents = []string{}
	}

	var id int64
	if err := s.querier(ctx).QueryRow(
		ctx, insertSwapQuery,
		swap.Proposer, swap.Counterparty,
		swap.OfferedAsset.CollectionID, swap.OfferedAsset.TokenID,
		swap.RequestedAsset.CollectionID, swap.RequestedAsset.TokenID,
		int64(swap.FeeRateSnapshot), int32(swap.Status),
		swap.CreatedAt, swap.ExpiresAt, swap.AcceptedAt, swap.ClosedAt,
		consents,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert swap: %w", err)
	}

	swap.ID = uint64(id)
	return swap.ID, nil
}

func (s *swapRepositoryImpl) GetSwap(
	ctx context.Context, id uint64,
) (*domain.Swap, error) {
	row := s.querier(ctx).QueryRow(ctx, selectSwapQuery, int64(id))
	return scanSwap(row)
}

func (s *swapRepositoryImpl) GetSwaps(
	ctx context.Context, filter domain.SwapFilter, page *domain.Page,
) ([]domain.Swap, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if page != nil {
		offset := (page.Number - 1) * page.Size
		rows, err = s.querier(ctx).Query(
			ctx, selectSwapsPageQuery,
			filter.Party, int32(filter.Status), page.Size, offset,
		)
	} else {
		rows, err = s.querier(ctx).Query(
			ctx, selectSwapsQuery, filter.Party, int32(filter.Status),
		)
	}
	if err != nil {
		return nil, err
	}

	return scanSwaps(rows)
}

func (s *swapRepositoryImpl) GetActiveSwaps(
	ctx context.Context,
) ([]domain.Swap, error) {
	rows, err := s.querier(ctx).Query(
		ctx, selectActiveSwapsQuery,
		int32(domain.SwapStatusProposed), int32(domain.SwapStatusAccepted),
	)
	if err != nil {
		return nil, err
	}

	return scanSwaps(rows)
}

func (s *swapRepositoryImpl) UpdateSwap(
	ctx context.Context, id uint64,
	updateFn func(s *domain.Swap) (*domain.Swap, error),
) error {
	q := s.querier(ctx)

	swap, err := scanSwap(q.QueryRow(ctx, selectSwapForUpdateQuery, int64(id)))
	if err != nil {
		return err
	}

	updatedSwap, err := updateFn(swap)
	if err != nil {
		return err
	}

	consents := updatedSwap.CancelConsents
	if consents == nil {
		consents = []string{}
	}

	_, err = q.Exec(
		ctx, updateSwapQuery, int64(id), int32(updatedSwap.Status),
		updatedSwap.AcceptedAt, updatedSwap.ClosedAt, consents,
	)
	return err
}

func scanSwap(row pgx.Row) (*domain.Swap, error) {
	swap, err := scanSwapRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSwapNotFound
		}
		return nil, err
	}
	return swap, nil
}

func scanSwaps(rows pgx.Rows) ([]domain.Swap, error) {
	defer rows.Close()

	swaps := make([]domain.Swap, 0)
	for rows.Next() {
		swap, err := scanSwapRow(rows)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, *swap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return swaps, nil
}

func scanSwapRow(row pgx.Row) (*domain.Swap, error) {
	var (
		id, feeRate int64
		status      int32
		swap        domain.Swap
	)
	if err := row.Scan(
		&id, &swap.Proposer, &swap.Counterparty,
		&swap.OfferedAsset.CollectionID, &swap.OfferedAsset.TokenID,
		&swap.RequestedAsset.CollectionID, &swap.RequestedAsset.TokenID,
		&feeRate, &status,
		&swap.CreatedAt, &swap.ExpiresAt, &swap.AcceptedAt, &swap.ClosedAt,
		&swap.CancelConsents,
	); err != nil {
		return nil, err
	}

	swap.ID = uint64(id)
	swap.FeeRateSnapshot = uint64(feeRate)
	swap.Status = domain.SwapStatus(status)
	if len(swap.CancelConsents) <= 0 {
		swap.CancelConsents = nil
	}
	return &swap, nil
}
