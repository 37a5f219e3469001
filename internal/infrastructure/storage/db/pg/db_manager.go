package postgresdb

import (
	"context"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
)

const (
	postgresDriver = "pgx"

	uniqueViolation = "23505"
)

type txContextKey struct{}

// querier is satisfied by both the connection pool and a pgx transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type DbConfig struct {
	DataSourceURL      string
	MigrationSourceURL string
}

type repoManager struct {
	pgxPool *pgxpool.Pool

	swapRepository      domain.SwapRepository
	escrowRepository    domain.EscrowRepository
	feePolicyRepository domain.FeePolicyRepository
	swapEventRepository domain.SwapEventRepository
}

func NewService(dbConfig DbConfig) (ports.RepoManager, error) {
	pgxPool, err := connect(dbConfig.DataSourceURL)
	if err != nil {
		return nil, err
	}

	if err = migrateDb(
		dbConfig.DataSourceURL, dbConfig.MigrationSourceURL,
	); err != nil {
		pgxPool.Close()
		return nil, err
	}

	rm := &repoManager{pgxPool: pgxPool}
	rm.swapRepository = newSwapRepositoryImpl(rm.querier)
	rm.escrowRepository = newEscrowRepositoryImpl(rm.querier)
	rm.feePolicyRepository = newFeePolicyRepositoryImpl(rm.querier)
	rm.swapEventRepository = newSwapEventRepositoryImpl(rm.querier)

	return rm, nil
}

func (r *repoManager) SwapRepository() domain.SwapRepository {
	return r.swapRepository
}

func (r *repoManager) EscrowRepository() domain.EscrowRepository {
	return r.escrowRepository
}

func (r *repoManager) FeePolicyRepository() domain.FeePolicyRepository {
	return r.feePolicyRepository
}

func (r *repoManager) SwapEventRepository() domain.SwapEventRepository {
	return r.swapEventRepository
}

func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if _, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return handler(ctx)
	}

	opts := pgx.TxOptions{}
	if readOnly {
		opts.AccessMode = pgx.ReadOnly
	}

	tx, err := r.pgxPool.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Rollback is safe to call even if the tx is already closed, so if
	// the tx commits successfully, this is a no-op.
	defer func() {
		err := tx.Rollback(ctx)
		switch {
		case errors.Is(err, pgx.ErrTxClosed):
			return
		case err != nil:
			log.Errorf("unable to rollback db tx: %v", err)
		}
	}()

	res, err := handler(context.WithValue(ctx, txContextKey{}, tx))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repoManager) Close() {
	r.pgxPool.Close()
}

// querier returns the transaction bound to ctx, if any, or the pool.
func (r *repoManager) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pgxPool
}

func connect(dataSource string) (*pgxpool.Pool, error) {
	return pgxpool.Connect(context.Background(), dataSource)
}

func migrateDb(dataSource, migrationSourceUrl string) error {
	pg := postgres.Postgres{}

	d, err := pg.Open(dataSource)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationSourceUrl,
		postgresDriver,
		d,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
