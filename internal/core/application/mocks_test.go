package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	ledgerinmemory "github.com/tdex-network/nftswap-daemon/internal/infrastructure/ledger/inmemory"
)

// **** Ledger ****

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) VerifyOwnership(
	_ context.Context, asset domain.Asset, owner string,
) (bool, error) {
	args := m.Called(asset, owner)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) Transfer(
	_ context.Context, asset domain.Asset, from, to string,
) error {
	args := m.Called(asset, from, to)
	return args.Error(0)
}

func (m *mockLedger) Balance(_ context.Context, account string) (uint64, error) {
	args := m.Called(account)

	var res uint64
	if a := args.Get(0); a != nil {
		res = a.(uint64)
	}
	return res, args.Error(1)
}

func (m *mockLedger) Pay(
	_ context.Context, from, to string, amount uint64,
) error {
	args := m.Called(from, to, amount)
	return args.Error(0)
}

func (m *mockLedger) Close() {}

// faultyLedger fails the transfers registered with FailTransfer until they
// are restored.
type faultyLedger struct {
	*ledgerinmemory.Ledger

	lock     sync.Mutex
	failures map[string]error
}

func newFaultyLedger(l *ledgerinmemory.Ledger) *faultyLedger {
	return &faultyLedger{Ledger: l, failures: map[string]error{}}
}

func (l *faultyLedger) FailTransfer(
	asset domain.Asset, from, to string, err error,
) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.failures[transferKey(asset, from, to)] = err
}

func (l *faultyLedger) Restore() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.failures = map[string]error{}
}

func (l *faultyLedger) Transfer(
	ctx context.Context, asset domain.Asset, from, to string,
) error {
	l.lock.Lock()
	err := l.failures[transferKey(asset, from, to)]
	l.lock.Unlock()

	if err != nil {
		return err
	}
	return l.Ledger.Transfer(ctx, asset, from, to)
}

func transferKey(asset domain.Asset, from, to string) string {
	return fmt.Sprintf("%s:%s>%s", asset, from, to)
}

// blockingLedger holds the ownership checks of one account until unblocked.
type blockingLedger struct {
	*ledgerinmemory.Ledger

	account string
	entered chan struct{}
	unblock chan struct{}
	once    sync.Once
}

func newBlockingLedger(l *ledgerinmemory.Ledger, account string) *blockingLedger {
	return &blockingLedger{
		Ledger:  l,
		account: account,
		entered: make(chan struct{}),
		unblock: make(chan struct{}),
	}
}

func (l *blockingLedger) VerifyOwnership(
	ctx context.Context, asset domain.Asset, owner string,
) (bool, error) {
	if owner == l.account {
		l.once.Do(func() { close(l.entered) })
		<-l.unblock
	}
	return l.Ledger.VerifyOwnership(ctx, asset, owner)
}

// **** Clock ****

type mockClock struct {
	lock sync.Mutex
	now  time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Unix(1700000000, 0)}
}

func (c *mockClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

// **** PubSub ****

type published struct {
	topic   string
	message string
}

type mockSubscription struct {
	id, topic, endpoint string
	secured             bool
}

func (s mockSubscription) Topic() string    { return s.topic }
func (s mockSubscription) Id() string       { return s.id }
func (s mockSubscription) IsSecured() bool  { return s.secured }
func (s mockSubscription) NotifyAt() string { return s.endpoint }

// mockPubSub keeps subscriptions in memory and records published messages.
type mockPubSub struct {
	lock      sync.Mutex
	subs      []mockSubscription
	published []published
}

func (m *mockPubSub) Subscribe(topic, endpoint, secret string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	id := fmt.Sprintf("hook-%d", len(m.subs)+1)
	m.subs = append(m.subs, mockSubscription{id, topic, endpoint, len(secret) > 0})
	return id, nil
}

func (m *mockPubSub) Unsubscribe(id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for i, s := range m.subs {
		if s.id == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("subscription not found")
}

func (m *mockPubSub) ListSubscriptionsForTopic(
	topic string,
) ([]ports.Subscription, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	subs := make([]ports.Subscription, 0)
	for _, s := range m.subs {
		if topic == ports.UnspecifiedTopic || s.topic == topic ||
			s.topic == ports.AnyTopic {
			subs = append(subs, s)
		}
	}
	return subs, nil
}

func (m *mockPubSub) Publish(topic, message string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.published = append(m.published, published{topic, message})
	return nil
}

func (m *mockPubSub) Close() error { return nil }

func (m *mockPubSub) topics() []string {
	m.lock.Lock()
	defer m.lock.Unlock()

	topics := make([]string, 0, len(m.published))
	for _, p := range m.published {
		topics = append(topics, p.topic)
	}
	return topics
}
