package httpinterface

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/nftswap-daemon/internal/core/application"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	ledgerinmemory "github.com/tdex-network/nftswap-daemon/internal/infrastructure/ledger/inmemory"
	"github.com/tdex-network/nftswap-daemon/internal/infrastructure/pubsub"
)

const (
	adminToken   = "secret"
	adminAccount = "admin"
)

var (
	punk = domain.Asset{CollectionID: "punks", TokenID: "1"}
	ape  = domain.Asset{CollectionID: "apes", TokenID: "7"}
)

type testServer struct {
	t      *testing.T
	router http.Handler
	ledger *ledgerinmemory.Ledger
}

func newTestServer(t *testing.T) *testServer {
	ledger := ledgerinmemory.NewLedger()
	ledger.Mint(punk, "alice")
	ledger.Mint(ape, "bob")
	ledger.Credit("alice", 1000)

	pubsubSvc, err := pubsub.NewService("", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		//nolint
		pubsubSvc.Close()
	})

	cfg := &application.Config{
		DBType:         application.DBInMemory,
		Ledger:         ledger,
		PubSub:         pubsubSvc,
		AdminAccount:   adminAccount,
		InitialFeeRate: 100,
		DefaultSwapTTL: time.Hour,
		MaxSwapTTL:     24 * time.Hour,
	}
	require.NoError(t, cfg.Validate())
	t.Cleanup(cfg.RepoManager().Close)

	opts := ServiceOpts{
		Address:           ":0",
		AdminToken:        adminToken,
		AdminAccount:      adminAccount,
		FeeTokenPrecision: 2,
		SwapSvc:           cfg.SwapService(),
		FeeSvc:            cfg.FeeService(),
		WebhookSvc:        cfg.WebhookService(),
	}
	require.NoError(t, opts.validate())

	return &testServer{t, newRouter(opts), ledger}
}

func (s *testServer) do(
	method, path string, body interface{}, token string,
) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if len(token) > 0 {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) propose() swapResponse {
	rec := s.do(http.MethodPost, "/v1/swaps", map[string]interface{}{
		"proposer":        "alice",
		"counterparty":    "bob",
		"offered_asset":   map[string]string{"collection_id": "punks", "token_id": "1"},
		"requested_asset": map[string]string{"collection_id": "apes", "token_id": "7"},
	}, "")
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var swap swapResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &swap))
	return swap
}

func TestSwapLifecycle(t *testing.T) {
	s := newTestServer(t)

	swap := s.propose()
	require.Equal(t, "proposed", swap.Status)
	require.Equal(t, uint64(100), swap.FeeRateSnapshot)
	require.Equal(t, "1.00", swap.FeeOwed)

	path := fmt.Sprintf("/v1/swaps/%d", swap.ID)

	rec := s.do(http.MethodPost, path+"/accept", map[string]string{"caller": "bob"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/v1/custody", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var custody listCustodyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &custody))
	require.Len(t, custody.Entries, 2)
	require.Equal(t, application.DefaultEscrowAccount, s.ledger.OwnerOf(punk))
	require.Equal(t, application.DefaultEscrowAccount, s.ledger.OwnerOf(ape))

	rec = s.do(http.MethodPost, path+"/settle", map[string]string{"caller": "alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &swap))
	require.Equal(t, "settled", swap.Status)
	require.Equal(t, "bob", s.ledger.OwnerOf(punk))
	require.Equal(t, "alice", s.ledger.OwnerOf(ape))

	rec = s.do(http.MethodGet, path+"/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history swapHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Events, 4)
	require.Equal(t, "settle_started", history.Events[2].Type)
	require.Equal(t, "settled", history.Events[3].Type)

	rec = s.do(http.MethodGet, "/v1/swaps?party=bob&status=settled", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list listSwapsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Swaps, 1)
}

func TestErrors(t *testing.T) {
	s := newTestServer(t)
	swap := s.propose()
	path := fmt.Sprintf("/v1/swaps/%d", swap.ID)

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			"already locked", http.MethodPost, "/v1/swaps",
			map[string]interface{}{
				"proposer":        "alice",
				"offered_asset":   map[string]string{"collection_id": "punks", "token_id": "1"},
				"requested_asset": map[string]string{"collection_id": "apes", "token_id": "8"},
			},
			http.StatusConflict, application.KindAlreadyLocked,
		},
		{
			"not owner", http.MethodPost, "/v1/swaps",
			map[string]interface{}{
				"proposer":        "carol",
				"offered_asset":   map[string]string{"collection_id": "apes", "token_id": "7"},
				"requested_asset": map[string]string{"collection_id": "apes", "token_id": "8"},
			},
			http.StatusUnprocessableEntity, application.KindNotOwner,
		},
		{
			"missing token id", http.MethodPost, "/v1/swaps",
			map[string]interface{}{
				"proposer":        "alice",
				"offered_asset":   map[string]string{"collection_id": "punks"},
				"requested_asset": map[string]string{"collection_id": "apes", "token_id": "8"},
			},
			http.StatusBadRequest, application.KindInvalidArgument,
		},
		{
			"ttl above max", http.MethodPost, "/v1/swaps",
			map[string]interface{}{
				"proposer":        "bob",
				"offered_asset":   map[string]string{"collection_id": "apes", "token_id": "7"},
				"requested_asset": map[string]string{"collection_id": "apes", "token_id": "8"},
				"ttl_seconds":     int64(24*3600 + 1),
			},
			http.StatusBadRequest, application.KindInvalidArgument,
		},
		{
			"ttl overflowing duration", http.MethodPost, "/v1/swaps",
			map[string]interface{}{
				"proposer":        "bob",
				"offered_asset":   map[string]string{"collection_id": "apes", "token_id": "7"},
				"requested_asset": map[string]string{"collection_id": "apes", "token_id": "8"},
				"ttl_seconds":     int64(9223372037),
			},
			http.StatusBadRequest, application.KindInvalidArgument,
		},
		{
			"missing caller", http.MethodPost, path + "/accept",
			map[string]string{}, http.StatusBadRequest, application.KindInvalidArgument,
		},
		{
			"unauthorized", http.MethodPost, path + "/accept",
			map[string]string{"caller": "carol"},
			http.StatusForbidden, application.KindUnauthorized,
		},
		{
			"invalid state", http.MethodPost, path + "/settle",
			map[string]string{"caller": "alice"},
			http.StatusConflict, application.KindInvalidState,
		},
		{
			"not found", http.MethodGet, "/v1/swaps/1000", nil,
			http.StatusNotFound, application.KindNotFound,
		},
		{
			"invalid id", http.MethodGet, "/v1/swaps/abc", nil,
			http.StatusBadRequest, application.KindInvalidArgument,
		},
		{
			"invalid status filter", http.MethodGet, "/v1/swaps?status=unknown", nil,
			http.StatusBadRequest, application.KindInvalidArgument,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body, "")
			require.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())

			var res errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			require.Equal(t, tt.expectedCode, res.Code)
			require.NotEmpty(t, res.Error)
		})
	}
}

func TestFeeEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/v1/fee", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fee feeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fee))
	require.Equal(t, uint64(100), fee.FeeRate)
	require.Equal(t, "1.00", fee.FeeAmount)
	require.Equal(t, adminAccount, fee.FeeCollector)

	rec = s.do(http.MethodPut, "/v1/fee", map[string]uint64{"fee_rate": 200}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPut, "/v1/fee", map[string]uint64{"fee_rate": 200}, "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPut, "/v1/fee", map[string]uint64{"fee_rate": 200}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fee))
	require.Equal(t, uint64(200), fee.FeeRate)

	rec = s.do(http.MethodPut, "/v1/fee", map[string]string{"fee_amount": "2.5"}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fee))
	require.Equal(t, uint64(250), fee.FeeRate)

	rec = s.do(http.MethodPut, "/v1/fee", map[string]uint64{"fee_rate": 5000}, adminToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var res errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, application.KindInvalidRate, res.Code)

	rec = s.do(http.MethodPut, "/v1/fee", map[string]string{}, adminToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(
		http.MethodPut, "/v1/fee/collector",
		map[string]string{"fee_collector": "treasury"}, adminToken,
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fee))
	require.Equal(t, "treasury", fee.FeeCollector)
}

func TestSweep(t *testing.T) {
	s := newTestServer(t)
	s.propose()

	rec := s.do(http.MethodPost, "/v1/swaps/sweep", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/v1/swaps/sweep", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res sweepResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Empty(t, res.ExpiredSwapIDs)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/v1/fee", nil, "")
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/v1/fee", nil)
	id := "6f1c0a8e-2f4b-4c55-9d8a-3b1f6f0e2a11"
	req.Header.Set(requestIDHeader, id)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestStartStop(t *testing.T) {
	_, err := NewService(ServiceOpts{Address: ":0"})
	require.Error(t, err)

	ledger := ledgerinmemory.NewLedger()
	cfg := &application.Config{
		DBType:         application.DBInMemory,
		Ledger:         ledger,
		AdminAccount:   adminAccount,
		DefaultSwapTTL: time.Hour,
		MaxSwapTTL:     time.Hour,
	}
	require.NoError(t, cfg.Validate())

	svc, err := NewService(ServiceOpts{
		Address:        "127.0.0.1:0",
		AdminToken:     adminToken,
		AdminAccount:   adminAccount,
		MaxConnections: 10,
		SwapSvc:        cfg.SwapService(),
		FeeSvc:         cfg.FeeService(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	svc.Stop()
}

func TestWebhookEndpoints(t *testing.T) {
	s := newTestServer(t)

	body := map[string]string{
		"event":    "settled",
		"endpoint": "http://localhost:8080/hooks",
		"secret":   "hook-secret",
	}
	rec := s.do(http.MethodPost, "/v1/webhooks", body, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/v1/webhooks", body, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	var added addWebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.NotEmpty(t, added.ID)

	rec = s.do(http.MethodGet, "/v1/webhooks?event=settled", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var list listWebhooksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Webhooks, 1)
	require.Equal(t, added.ID, list.Webhooks[0].ID)
	require.True(t, list.Webhooks[0].IsSecured)
	require.NotContains(t, rec.Body.String(), "hook-secret")

	rec = s.do(http.MethodGet, "/v1/webhooks?event=traded", nil, adminToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/webhooks", map[string]string{
		"event": "traded", "endpoint": "http://localhost:8080/hooks",
	}, adminToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/webhooks", map[string]string{
		"event": "settled", "endpoint": "not an url",
	}, adminToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/v1/webhooks/%s", added.ID)
	rec = s.do(http.MethodDelete, path, nil, adminToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, path, nil, adminToken)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
