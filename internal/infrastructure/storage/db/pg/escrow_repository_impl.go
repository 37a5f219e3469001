package postgresdb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

const (
	escrowColumns = `asset_key, swap_id, collection_id, token_id,
	original_owner, custody_held, locked_at`

	insertEntryQuery = `INSERT INTO escrow_entry (` + escrowColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectEntryByAssetQuery = "SELECT " + escrowColumns +
		" FROM escrow_entry WHERE asset_key = $1"
	selectEntriesBySwapQuery = "SELECT " + escrowColumns +
		" FROM escrow_entry WHERE swap_id = $1 ORDER BY locked_at"
	selectAllEntriesQuery = "SELECT " + escrowColumns +
		" FROM escrow_entry ORDER BY swap_id, locked_at"
	deleteEntriesBySwapQuery = "DELETE FROM escrow_entry WHERE swap_id = $1"
)

type escrowRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

func newEscrowRepositoryImpl(
	querier func(ctx context.Context) querier,
) domain.EscrowRepository {
	return &escrowRepositoryImpl{querier}
}

func (e *escrowRepositoryImpl) AddEntry(
	ctx context.Context, entry domain.EscrowEntry,
) error {
	if _, err := e.querier(ctx).Exec(
		ctx, insertEntryQuery,
		entry.Asset.Key(), int64(entry.SwapID),
		entry.Asset.CollectionID, entry.Asset.TokenID,
		entry.OriginalOwner, entry.CustodyHeld, entry.LockedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAssetAlreadyLocked
		}
		return err
	}
	return nil
}

func (e *escrowRepositoryImpl) GetEntryByAsset(
	ctx context.Context, asset domain.Asset,
) (*domain.EscrowEntry, error) {
	entry, err := scanEntry(
		e.querier(ctx).QueryRow(ctx, selectEntryByAssetQuery, asset.Key()),
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (e *escrowRepositoryImpl) GetEntriesBySwap(
	ctx context.Context, swapID uint64,
) ([]domain.EscrowEntry, error) {
	rows, err := e.querier(ctx).Query(
		ctx, selectEntriesBySwapQuery, int64(swapID),
	)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (e *escrowRepositoryImpl) GetAllEntries(
	ctx context.Context,
) ([]domain.EscrowEntry, error) {
	rows, err := e.querier(ctx).Query(ctx, selectAllEntriesQuery)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (e *escrowRepositoryImpl) DeleteEntriesBySwap(
	ctx context.Context, swapID uint64,
) (int, error) {
	tag, err := e.querier(ctx).Exec(
		ctx, deleteEntriesBySwapQuery, int64(swapID),
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanEntries(rows pgx.Rows) ([]domain.EscrowEntry, error) {
	defer rows.Close()

	entries := make([]domain.EscrowEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.EscrowEntry, error) {
	var (
		swapID int64
		entry  domain.EscrowEntry
	)
	if err := row.Scan(
		&entry.AssetKey, &swapID,
		&entry.Asset.CollectionID, &entry.Asset.TokenID,
		&entry.OriginalOwner, &entry.CustodyHeld, &entry.LockedAt,
	); err != nil {
		return nil, err
	}
	entry.SwapID = uint64(swapID)
	return &entry, nil
}
