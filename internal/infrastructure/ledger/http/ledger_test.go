package ledgerhttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	ledgerhttp "github.com/tdex-network/nftswap-daemon/internal/infrastructure/ledger/http"
)

var (
	ctx  = context.Background()
	punk = domain.Asset{CollectionID: "punks", TokenID: "1"}
	ape  = domain.Asset{CollectionID: "apes", TokenID: "7"}
)

func TestNewLedger(t *testing.T) {
	_, err := ledgerhttp.NewLedger(ledgerhttp.Config{})
	require.ErrorIs(t, err, ledgerhttp.ErrMissingURL)

	_, err = ledgerhttp.NewLedger(ledgerhttp.Config{URL: "not a url"})
	require.Error(t, err)
}

func TestVerifyOwnership(t *testing.T) {
	l := newTestLedger(t, newFakeLedger())

	owned, err := l.VerifyOwnership(ctx, punk, "alice")
	require.NoError(t, err)
	require.True(t, owned)

	owned, err = l.VerifyOwnership(ctx, punk, "bob")
	require.NoError(t, err)
	require.False(t, owned)

	owned, err = l.VerifyOwnership(ctx, domain.Asset{CollectionID: "punks", TokenID: "404"}, "alice")
	require.NoError(t, err)
	require.False(t, owned)
}

func TestTransfer(t *testing.T) {
	fake := newFakeLedger()
	l := newTestLedger(t, fake)

	err := l.Transfer(ctx, punk, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "bob", fake.owner(punk))

	err = l.Transfer(ctx, punk, "alice", "bob")
	require.ErrorIs(t, err, domain.ErrTransferRejected)
	require.Contains(t, err.Error(), "not the owner")
}

func TestPayments(t *testing.T) {
	l := newTestLedger(t, newFakeLedger())

	balance, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), balance)

	balance, err = l.Balance(ctx, "unknown")
	require.NoError(t, err)
	require.Zero(t, balance)

	err = l.Pay(ctx, "alice", "admin", 100)
	require.NoError(t, err)

	balance, err = l.Balance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(900), balance)

	err = l.Pay(ctx, "bob", "admin", 100)
	require.ErrorIs(t, err, domain.ErrTransferRejected)
}

func TestUnexpectedStatus(t *testing.T) {
	l := newTestLedger(t, newFakeLedger())

	_, err := l.VerifyOwnership(ctx, ape, "alice")
	require.ErrorIs(t, err, ledgerhttp.ErrUnexpectedStatus)
	require.NotErrorIs(t, err, domain.ErrTransferRejected)
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("rejections do not trip", func(t *testing.T) {
		l := newTestLedger(t, newFakeLedger())

		for i := 0; i < 20; i++ {
			err := l.Pay(ctx, "bob", "admin", 100)
			require.ErrorIs(t, err, domain.ErrTransferRejected)
		}

		owned, err := l.VerifyOwnership(ctx, punk, "alice")
		require.NoError(t, err)
		require.True(t, owned)
	})

	t.Run("server errors trip", func(t *testing.T) {
		l := newTestLedger(t, newFakeLedger())

		for i := 0; i < 11; i++ {
			_, err := l.VerifyOwnership(ctx, ape, "alice")
			require.ErrorIs(t, err, ledgerhttp.ErrUnexpectedStatus)
		}

		_, err := l.VerifyOwnership(ctx, punk, "alice")
		require.ErrorIs(t, err, gobreaker.ErrOpenState)
	})
}

func newTestLedger(t *testing.T, fake *fakeLedger) ports.Ledger {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	l, err := ledgerhttp.NewLedger(ledgerhttp.Config{
		URL:       srv.URL,
		RateLimit: 1000,
	})
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

// fakeLedger serves the ledger api. Requests for the ape asset always fail
// with an internal error.
type fakeLedger struct {
	lock     sync.Mutex
	owners   map[string]string
	balances map[string]uint64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		owners:   map[string]string{"/v1/collections/punks/tokens/1": "alice"},
		balances: map[string]uint64{"alice": 1000},
	}
}

func (f *fakeLedger) owner(asset domain.Asset) string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.owners["/v1/collections/"+asset.CollectionID+"/tokens/"+asset.TokenID]
}

func (f *fakeLedger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()

	path := r.URL.Path
	switch {
	case path == "/v1/collections/apes/tokens/7/owner":
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/owner"):
		owner, ok := f.owners[strings.TrimSuffix(path, "/owner")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"owner": owner})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/transfer"):
		req := struct{ From, To string }{}
		json.NewDecoder(r.Body).Decode(&req)
		key := strings.TrimSuffix(path, "/transfer")
		if f.owners[key] != req.From {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "sender is not the owner"})
			return
		}
		f.owners[key] = req.To
		writeJSON(w, http.StatusOK, map[string]string{})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/balance"):
		account := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/accounts/"), "/balance")
		balance, ok := f.balances[account]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})

	case r.Method == http.MethodPost && path == "/v1/payments":
		req := struct {
			From, To string
			Amount   uint64
		}{}
		json.NewDecoder(r.Body).Decode(&req)
		if f.balances[req.From] < req.Amount {
			writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient balance"})
			return
		}
		f.balances[req.From] -= req.Amount
		f.balances[req.To] += req.Amount
		writeJSON(w, http.StatusOK, map[string]string{})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
