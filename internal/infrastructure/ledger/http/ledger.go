package ledgerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	"github.com/tdex-network/nftswap-daemon/pkg/circuitbreaker"
	"github.com/tdex-network/nftswap-daemon/pkg/stats"
	"go.uber.org/ratelimit"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 50
)

var (
	// ErrMissingURL ...
	ErrMissingURL = errors.New("missing ledger url")
	// ErrUnexpectedStatus is returned for any response not foreseen by the
	// ledger api.
	ErrUnexpectedStatus = errors.New("unexpected ledger response")
)

// Config holds the settings of the ledger client. Zero Timeout and
// RateLimit select the defaults. Metrics can be nil.
type Config struct {
	URL       string
	Timeout   time.Duration
	RateLimit int
	Metrics   *stats.Metrics
}

type ledger struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
	metrics *stats.Metrics
}

// NewLedger returns a client of the REST api of the external ledger. Calls
// are throttled and protected by a circuit breaker that does not count
// refused transfers and payments as failures.
func NewLedger(cfg Config) (ports.Ledger, error) {
	baseURL := strings.TrimSuffix(cfg.URL, "/")
	if len(baseURL) <= 0 {
		return nil, ErrMissingURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid ledger url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rate := cfg.RateLimit
	if rate <= 0 {
		rate = defaultRateLimit
	}

	return &ledger{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker("ledger", func(err error) bool {
			return errors.Is(err, domain.ErrTransferRejected)
		}),
		limiter: ratelimit.New(rate),
		metrics: cfg.Metrics,
	}, nil
}

func (l *ledger) VerifyOwnership(
	ctx context.Context, asset domain.Asset, owner string,
) (bool, error) {
	resp := ownerResponse{}
	status, err := l.do(
		ctx, "owner_of", http.MethodGet, assetPath(asset, "owner"), nil, &resp,
		http.StatusOK, http.StatusNotFound,
	)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	return len(owner) > 0 && resp.Owner == owner, nil
}

func (l *ledger) Transfer(
	ctx context.Context, asset domain.Asset, from, to string,
) error {
	_, err := l.do(
		ctx, "transfer", http.MethodPost, assetPath(asset, "transfer"),
		transferRequest{from, to}, nil, http.StatusOK,
	)
	return err
}

func (l *ledger) Balance(ctx context.Context, account string) (uint64, error) {
	resp := balanceResponse{}
	path := fmt.Sprintf("/v1/accounts/%s/balance", url.PathEscape(account))
	status, err := l.do(
		ctx, "balance", http.MethodGet, path, nil, &resp,
		http.StatusOK, http.StatusNotFound,
	)
	if err != nil {
		return 0, err
	}
	if status == http.StatusNotFound {
		return 0, nil
	}
	return resp.Balance, nil
}

func (l *ledger) Pay(ctx context.Context, from, to string, amount uint64) error {
	_, err := l.do(
		ctx, "pay", http.MethodPost, "/v1/payments",
		paymentRequest{from, to, amount}, nil, http.StatusOK,
	)
	return err
}

func (l *ledger) Close() {
	l.client.CloseIdleConnections()
}

// do sends the request and decodes the response into out for any of the
// expected statuses. Refusals of the ledger are returned as errors wrapping
// domain.ErrTransferRejected.
func (l *ledger) do(
	ctx context.Context, method, httpMethod, path string,
	body, out interface{}, expected ...int,
) (int, error) {
	l.limiter.Take()

	start := time.Now()
	defer func() {
		l.metrics.ObserveLedgerRequest(method, time.Since(start).Seconds())
	}()

	res, err := l.cb.Execute(func() (interface{}, error) {
		status, payload, err := l.send(ctx, httpMethod, path, body)
		if err != nil {
			return nil, err
		}

		if isRejection(status) {
			return nil, fmt.Errorf(
				"%w: %s", domain.ErrTransferRejected, errorMessage(payload),
			)
		}
		for _, s := range expected {
			if s != status {
				continue
			}
			if s == http.StatusOK && out != nil {
				if err := json.Unmarshal(payload, out); err != nil {
					return nil, fmt.Errorf("failed to decode ledger response: %w", err)
				}
			}
			return status, nil
		}
		return nil, fmt.Errorf(
			"%w: %s %s returned %d: %s",
			ErrUnexpectedStatus, httpMethod, path, status, errorMessage(payload),
		)
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

func (l *ledger) send(
	ctx context.Context, method, path string, body interface{},
) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read ledger response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

func assetPath(asset domain.Asset, action string) string {
	return fmt.Sprintf(
		"/v1/collections/%s/tokens/%s/%s",
		url.PathEscape(asset.CollectionID), url.PathEscape(asset.TokenID), action,
	)
}

func isRejection(status int) bool {
	switch status {
	case http.StatusPaymentRequired, http.StatusConflict,
		http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func errorMessage(payload []byte) string {
	resp := errorResponse{}
	if err := json.Unmarshal(payload, &resp); err == nil && len(resp.Error) > 0 {
		return resp.Error
	}
	return strings.TrimSpace(string(payload))
}
