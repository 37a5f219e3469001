package ledgerinmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
)

var (
	// ErrInsufficientBalance ...
	ErrInsufficientBalance = errors.New("insufficient payment token balance")
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Seed is the initial state of the ledger.
type Seed struct {
	Assets   []SeedAsset       `json:"assets"`
	Balances map[string]uint64 `json:"balances"`
}

type SeedAsset struct {
	CollectionID string `json:"collection_id"`
	TokenID      string `json:"token_id"`
	Owner        string `json:"owner"`
}

// Ledger is a volatile ledger holding both the NFT registry and the payment
// token, used for local deployments and tests.
type Ledger struct {
	lock     sync.RWMutex
	owners   map[string]string
	balances map[string]uint64
	rejected map[string]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		owners:   map[string]string{},
		balances: map[string]uint64{},
		rejected: map[string]struct{}{},
	}
}

// NewLedgerFromFile returns a ledger initialized with the JSON seed stored at
// the given path.
func NewLedgerFromFile(path string) (*Ledger, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger seed: %w", err)
	}
	seed := Seed{}
	if err := json.Unmarshal(buf, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse ledger seed: %w", err)
	}

	l := NewLedger()
	if err := l.Load(seed); err != nil {
		return nil, err
	}
	log.Infof(
		"ledger: loaded %d assets and %d accounts from seed",
		len(seed.Assets), len(seed.Balances),
	)
	return l, nil
}

// Load adds the given assets and balances to the ledger.
func (l *Ledger) Load(seed Seed) error {
	for _, a := range seed.Assets {
		asset, err := domain.NewAsset(a.CollectionID, a.TokenID)
		if err != nil {
			return err
		}
		if len(a.Owner) <= 0 {
			return fmt.Errorf("seed asset %s has no owner", asset)
		}
		l.Mint(asset, a.Owner)
	}
	for account, amount := range seed.Balances {
		l.Credit(account, amount)
	}
	return nil
}

// Mint assigns the asset to owner, overriding any previous owner.
func (l *Ledger) Mint(asset domain.Asset, owner string) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.owners[asset.Key()] = owner
}

// Credit adds amount to the payment token balance of the account.
func (l *Ledger) Credit(account string, amount uint64) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.balances[account] += amount
}

// OwnerOf returns the current owner of the asset, empty if unknown.
func (l *Ledger) OwnerOf(asset domain.Asset) string {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.owners[asset.Key()]
}

// RejectTransfers makes any following transfer of the asset fail until
// AllowTransfers is called.
func (l *Ledger) RejectTransfers(asset domain.Asset) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.rejected[asset.Key()] = struct{}{}
}

func (l *Ledger) AllowTransfers(asset domain.Asset) {
	l.lock.Lock()
	defer l.lock.Unlock()

	delete(l.rejected, asset.Key())
}

func (l *Ledger) VerifyOwnership(
	_ context.Context, asset domain.Asset, owner string,
) (bool, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	current, ok := l.owners[asset.Key()]
	return ok && len(owner) > 0 && current == owner, nil
}

func (l *Ledger) Transfer(
	_ context.Context, asset domain.Asset, from, to string,
) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	key := asset.Key()
	if _, ok := l.rejected[key]; ok {
		return fmt.Errorf("%w: transfers of %s are frozen", domain.ErrTransferRejected, asset)
	}
	if len(to) <= 0 {
		return fmt.Errorf("%w: missing recipient", domain.ErrTransferRejected)
	}
	if owner := l.owners[key]; owner != from {
		return fmt.Errorf(
			"%w: %s is not owned by %s", domain.ErrTransferRejected, asset, from,
		)
	}
	l.owners[key] = to
	return nil
}

func (l *Ledger) Balance(_ context.Context, account string) (uint64, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.balances[account], nil
}

func (l *Ledger) Pay(_ context.Context, from, to string, amount uint64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransferRejected, ErrInvalidAmount)
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if l.balances[from] < amount {
		return fmt.Errorf("%w: %s", domain.ErrTransferRejected, ErrInsufficientBalance)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

func (l *Ledger) Close() {}

var _ ports.Ledger = (*Ledger)(nil)
