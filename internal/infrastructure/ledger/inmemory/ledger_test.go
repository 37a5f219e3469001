package ledgerinmemory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	ledgerinmemory "github.com/tdex-network/nftswap-daemon/internal/infrastructure/ledger/inmemory"
)

var (
	ctx   = context.Background()
	punk  = domain.Asset{CollectionID: "punks", TokenID: "1"}
	alice = "alice"
	bob   = "bob"
)

func TestTransfer(t *testing.T) {
	l := ledgerinmemory.NewLedger()
	l.Mint(punk, alice)

	owned, err := l.VerifyOwnership(ctx, punk, alice)
	require.NoError(t, err)
	require.True(t, owned)

	err = l.Transfer(ctx, punk, bob, alice)
	require.ErrorIs(t, err, domain.ErrTransferRejected)

	err = l.Transfer(ctx, punk, alice, bob)
	require.NoError(t, err)
	require.Equal(t, bob, l.OwnerOf(punk))

	owned, err = l.VerifyOwnership(ctx, punk, alice)
	require.NoError(t, err)
	require.False(t, owned)

	l.RejectTransfers(punk)
	err = l.Transfer(ctx, punk, bob, alice)
	require.ErrorIs(t, err, domain.ErrTransferRejected)

	l.AllowTransfers(punk)
	err = l.Transfer(ctx, punk, bob, alice)
	require.NoError(t, err)
}

func TestPay(t *testing.T) {
	l := ledgerinmemory.NewLedger()
	l.Credit(alice, 150)

	err := l.Pay(ctx, alice, bob, 100)
	require.NoError(t, err)

	err = l.Pay(ctx, alice, bob, 100)
	require.ErrorIs(t, err, domain.ErrTransferRejected)
	require.ErrorIs(t, err, ledgerinmemory.ErrInsufficientBalance)

	err = l.Pay(ctx, alice, bob, 0)
	require.ErrorIs(t, err, ledgerinmemory.ErrInvalidAmount)

	balance, err := l.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(50), balance)

	balance, err = l.Balance(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(100), balance)
}

func TestNewLedgerFromFile(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeSeed(t, `{
			"assets": [{"collection_id": "punks", "token_id": "1", "owner": "alice"}],
			"balances": {"alice": 1000}
		}`)

		l, err := ledgerinmemory.NewLedgerFromFile(path)
		require.NoError(t, err)
		require.Equal(t, alice, l.OwnerOf(punk))

		balance, err := l.Balance(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), balance)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			seed string
		}{
			{"malformed", `{"assets": [`},
			{"missing token id", `{"assets": [{"collection_id": "punks", "owner": "alice"}]}`},
			{"missing owner", `{"assets": [{"collection_id": "punks", "token_id": "1"}]}`},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				_, err := ledgerinmemory.NewLedgerFromFile(writeSeed(t, tt.seed))
				require.Error(t, err)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ledgerinmemory.NewLedgerFromFile(
			filepath.Join(t.TempDir(), "seed.json"),
		)
		require.Error(t, err)
	})
}

func writeSeed(t *testing.T, seed string) string {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))
	return path
}
