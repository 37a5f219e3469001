package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/nftswap-daemon/internal/core/application"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	ledgerinmemory "github.com/tdex-network/nftswap-daemon/internal/infrastructure/ledger/inmemory"
	"github.com/tdex-network/nftswap-daemon/pkg/stats"
)

const (
	admin          = "admin"
	alice          = "alice"
	bob            = "bob"
	carol          = "carol"
	mallory        = "mallory"
	escrow         = application.DefaultEscrowAccount
	initialFeeRate = uint64(100)
)

var (
	punk  = domain.Asset{CollectionID: "punks", TokenID: "1"}
	ape   = domain.Asset{CollectionID: "apes", TokenID: "7"}
	kitty = domain.Asset{CollectionID: "kitties", TokenID: "42"}
)

type testEnv struct {
	cfg    *application.Config
	clock  *mockClock
	ledger ports.Ledger
	pubsub *mockPubSub
}

func (e *testEnv) swapSvc() application.SwapService {
	return e.cfg.SwapService()
}

func (e *testEnv) feeSvc() application.FeeService {
	return e.cfg.FeeService()
}

func (e *testEnv) webhookSvc() application.WebhookService {
	return e.cfg.WebhookService()
}

func (e *testEnv) repo() ports.RepoManager {
	return e.cfg.RepoManager()
}

func newTestEnv(t *testing.T, ledger ports.Ledger) *testEnv {
	clock := newMockClock()
	pubsub := &mockPubSub{}
	cfg := &application.Config{
		DBType:         application.DBInMemory,
		Ledger:         ledger,
		PubSub:         pubsub,
		AdminAccount:   admin,
		InitialFeeRate: initialFeeRate,
		DefaultSwapTTL: time.Hour,
		MaxSwapTTL:     24 * time.Hour,
		Metrics:        stats.NewMetrics(),
		Now:            clock.Now,
	}
	require.NoError(t, cfg.Validate())
	t.Cleanup(cfg.RepoManager().Close)

	return &testEnv{cfg, clock, ledger, pubsub}
}

// newSeededLedger returns a ledger where alice owns punk, bob owns ape and
// carol owns kitty, and everyone has 1000 payment tokens.
func newSeededLedger() *ledgerinmemory.Ledger {
	l := ledgerinmemory.NewLedger()
	l.Mint(punk, alice)
	l.Mint(ape, bob)
	l.Mint(kitty, carol)
	for _, account := range []string{alice, bob, carol} {
		l.Credit(account, 1000)
	}
	return l
}

func proposeRequest(ttl time.Duration) application.ProposeSwapRequest {
	return application.ProposeSwapRequest{
		Proposer:       alice,
		Counterparty:   bob,
		OfferedAsset:   punk,
		RequestedAsset: ape,
		TTL:            ttl,
	}
}
