package pubsub

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/golang-jwt/jwt"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	"github.com/tdex-network/nftswap-daemon/pkg/circuitbreaker"
	"golang.org/x/sync/errgroup"
)

const (
	requestTimeout = 15 * time.Second
	tokenTTL       = 5 * time.Minute
)

type service struct {
	store      *store
	httpClient *client

	lock sync.Mutex
	cbs  map[string]*gobreaker.CircuitBreaker
}

// NewService returns a webhook pubsub whose subscriptions are persisted
// under datadir, or kept in memory if datadir is empty.
func NewService(datadir string, logger badger.Logger) (ports.PubSub, error) {
	store, err := newStore(datadir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening pubsub store: %w", err)
	}

	return &service{
		store:      store,
		httpClient: newHTTPClient(requestTimeout),
		cbs:        make(map[string]*gobreaker.CircuitBreaker),
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	if err := ws.store.add(*sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(id string) error {
	if err := ws.store.remove(id); err != nil {
		return err
	}

	ws.lock.Lock()
	delete(ws.cbs, id)
	ws.lock.Unlock()
	return nil
}

func (ws *service) ListSubscriptionsForTopic(
	topic string,
) ([]ports.Subscription, error) {
	subs, err := ws.listSubscriptionsForTopic(topic)
	if err != nil {
		return nil, err
	}
	return subs.toPortable(), nil
}

func (ws *service) Publish(topic string, message string) error {
	subs, err := ws.listSubscriptionsForTopic(topic)
	if err != nil {
		return err
	}

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, message) })
	}
	return eg.Wait()
}

func (ws *service) Close() error {
	return ws.store.close()
}

func (ws *service) listSubscriptionsForTopic(topic string) (subscriptions, error) {
	switch topic {
	case ports.UnspecifiedTopic:
		return ws.store.findByTopics()
	case ports.AnyTopic:
		return ws.store.findByTopics(ports.AnyTopic)
	default:
		return ws.store.findByTopics(topic, ports.AnyTopic)
	}
}

// circuitBreaker returns the breaker of the subscription so that a failing
// endpoint does not affect the others.
func (ws *service) circuitBreaker(sub Subscription) *gobreaker.CircuitBreaker {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	cb, ok := ws.cbs[sub.ID]
	if !ok {
		cb = circuitbreaker.NewCircuitBreaker(
			fmt.Sprintf("webhook-%s", sub.ID), nil,
		)
		ws.cbs[sub.ID] = cb
	}
	return cb
}

func (ws *service) doRequest(sub Subscription, payload string) error {
	_, err := ws.circuitBreaker(sub).Execute(func() (interface{}, error) {
		headers := map[string]string{
			"Content-Type": "application/json",
		}
		if sub.IsSecured() {
			tokenString, err := signToken(sub)
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
		}

		status, resp, err := ws.httpClient.post(sub.Endpoint, payload, headers)
		if err != nil {
			return nil, err
		}
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return nil, fmt.Errorf(
				"webhook %s responded with status %d: %s", sub.ID, status, resp,
			)
		}
		return nil, nil
	})

	return err
}

func signToken(sub Subscription) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   sub.Event,
		Id:        sub.ID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenTTL).Unix(),
	})
	return token.SignedString([]byte(sub.Secret))
}
