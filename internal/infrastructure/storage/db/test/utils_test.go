package db_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	dbbadger "github.com/tdex-network/nftswap-daemon/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/nftswap-daemon/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/tdex-network/nftswap-daemon/internal/infrastructure/storage/db/pg"
)

// pgTestURLEnv enables the postgres implementation in the test suite.
const pgTestURLEnv = "NFTSWAP_TEST_PG_URL"

type repoManager struct {
	Name      string
	DBManager ports.RepoManager
}

func (r repoManager) read(
	query func(context.Context) (interface{}, error),
) (interface{}, error) {
	return r.DBManager.RunTransaction(context.Background(), true, query)
}

func (r repoManager) write(
	query func(context.Context) (interface{}, error),
) (interface{}, error) {
	return r.DBManager.RunTransaction(context.Background(), false, query)
}

func createRepoManagers(t *testing.T) []repoManager {
	inmemoryDBManager := inmemory.NewRepoManager()
	badgerDBManager, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)

	repos := []repoManager{
		{
			Name:      "badger",
			DBManager: badgerDBManager,
		},
		{
			Name:      "inmemory",
			DBManager: inmemoryDBManager,
		},
	}

	if url := os.Getenv(pgTestURLEnv); len(url) > 0 {
		pgDBManager, err := postgresdb.NewService(postgresdb.DbConfig{
			DataSourceURL:      url,
			MigrationSourceURL: "file://../pg/migration",
		})
		require.NoError(t, err)

		repos = append(repos, repoManager{
			Name:      "postgres",
			DBManager: pgDBManager,
		})
	}

	t.Cleanup(func() {
		for _, r := range repos {
			r.DBManager.Close()
		}
	})

	return repos
}

func makeRandomSwap(proposer string) *domain.Swap {
	swap, _ := domain.NewSwap(
		proposer, "", makeRandomAsset(), makeRandomAsset(), 100,
		1700000000, 3600,
	)
	return swap
}

func makeRandomAsset() domain.Asset {
	return domain.Asset{
		CollectionID: randomHex(8),
		TokenID:      randomHex(4),
	}
}

func addRandomSwap(
	t *testing.T, repo repoManager, proposer string,
) *domain.Swap {
	swap := makeRandomSwap(proposer)
	_, err := repo.DBManager.SwapRepository().AddSwap(
		context.Background(), swap,
	)
	require.NoError(t, err)
	return swap
}

func randomHex(len int) string {
	return hex.EncodeToString(randomBytes(len))
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	// nolint
	rand.Read(b)
	return b
}
