package inmemory

import (
	"context"
	"sync"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
)

// inmemoryStore is the state shared by all the repositories of a
// RepoManager. lock guards the maps, writer serializes the writers.
type inmemoryStore struct {
	swaps     map[uint64]domain.Swap
	swapSeq   uint64
	entries   map[string]domain.EscrowEntry
	feePolicy *domain.FeePolicy
	events    []domain.SwapEvent
	eventSeq  uint64

	lock   *sync.RWMutex
	writer *sync.Mutex
}

type repoManager struct {
	store *inmemoryStore

	swapRepository      domain.SwapRepository
	escrowRepository    domain.EscrowRepository
	feePolicyRepository domain.FeePolicyRepository
	swapEventRepository domain.SwapEventRepository
}

// NewRepoManager returns a RepoManager that keeps everything in memory.
// Write transactions are serialized and supported by undoing the writes of
// a failed handler.
func NewRepoManager() ports.RepoManager {
	store := &inmemoryStore{
		swaps:   map[uint64]domain.Swap{},
		entries: map[string]domain.EscrowEntry{},
		events:  make([]domain.SwapEvent, 0),
		lock:    &sync.RWMutex{},
		writer:  &sync.Mutex{},
	}

	return &repoManager{
		store:               store,
		swapRepository:      NewSwapRepositoryImpl(store),
		escrowRepository:    NewEscrowRepositoryImpl(store),
		feePolicyRepository: NewFeePolicyRepositoryImpl(store),
		swapEventRepository: NewSwapEventRepositoryImpl(store),
	}
}

func (d *repoManager) SwapRepository() domain.SwapRepository {
	return d.swapRepository
}

func (d *repoManager) EscrowRepository() domain.EscrowRepository {
	return d.escrowRepository
}

func (d *repoManager) FeePolicyRepository() domain.FeePolicyRepository {
	return d.feePolicyRepository
}

func (d *repoManager) SwapEventRepository() domain.SwapEventRepository {
	return d.swapEventRepository
}

func (d *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	// Join the transaction of the caller, if any.
	if _, ok := ctx.Value(txContextKey{}).(*transaction); ok {
		return handler(ctx)
	}

	if !readOnly {
		d.store.writer.Lock()
		defer d.store.writer.Unlock()
	}

	tx := &transaction{readOnly: readOnly}
	res, err := handler(context.WithValue(ctx, txContextKey{}, tx))
	if err != nil {
		tx.rollback(d.store)
		return nil, err
	}
	return res, nil
}

func (d *repoManager) Close() {}
