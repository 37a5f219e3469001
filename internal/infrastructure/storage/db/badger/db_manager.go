package dbbadger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const (
	swapSequenceKey  = "seq_swap"
	eventSequenceKey = "seq_event"
	sequenceBandwith = 100

	maxTxRetries = 5
)

type txContextKey struct{}

type repoManager struct {
	store     *badgerhold.Store
	swapSeq   *badger.Sequence
	eventSeq  *badger.Sequence
	gcTicker  *time.Ticker
	closeChan chan struct{}

	swapRepository      domain.SwapRepository
	escrowRepository    domain.EscrowRepository
	feePolicyRepository domain.FeePolicyRepository
	swapEventRepository domain.SwapEventRepository
}

// NewRepoManager opens (or creates if not exists) the badger store in the
// given base directory. An empty directory makes the store in-memory.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, "swaps")
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening main db: %w", err)
	}

	swapSeq, err := store.Badger().GetSequence(
		[]byte(swapSequenceKey), sequenceBandwith,
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening swap sequence: %w", err)
	}
	eventSeq, err := store.Badger().GetSequence(
		[]byte(eventSequenceKey), sequenceBandwith,
	)
	if err != nil {
		swapSeq.Release()
		store.Close()
		return nil, fmt.Errorf("opening event sequence: %w", err)
	}

	r := &repoManager{
		store:     store,
		swapSeq:   swapSeq,
		eventSeq:  eventSeq,
		closeChan: make(chan struct{}),
	}
	r.swapRepository = newSwapRepositoryImpl(store, swapSeq)
	r.escrowRepository = newEscrowRepositoryImpl(store)
	r.feePolicyRepository = newFeePolicyRepositoryImpl(store)
	r.swapEventRepository = newSwapEventRepositoryImpl(store, eventSeq)

	if len(dbDir) > 0 {
		r.startValueLogGC()
	}

	return r, nil
}

func (r *repoManager) SwapRepository() domain.SwapRepository {
	return r.swapRepository
}

func (r *repoManager) EscrowRepository() domain.EscrowRepository {
	return r.escrowRepository
}

func (r *repoManager) FeePolicyRepository() domain.FeePolicyRepository {
	return r.feePolicyRepository
}

func (r *repoManager) SwapEventRepository() domain.SwapEventRepository {
	return r.swapEventRepository
}

// RunTransaction runs the handler in a badger transaction bound to the
// context passed to it. Handlers called within an existing transaction join
// it. Write transactions aborted by a conflict are retried from scratch.
func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if _, ok := ctx.Value(txContextKey{}).(*badger.Txn); ok {
		return handler(ctx)
	}

	for attempt := 1; ; attempt++ {
		tx := r.store.Badger().NewTransaction(!readOnly)
		res, err := handler(context.WithValue(ctx, txContextKey{}, tx))
		if err != nil {
			tx.Discard()
			return nil, err
		}

		if readOnly {
			tx.Discard()
			return res, nil
		}

		if err := tx.Commit(); err != nil {
			if errors.Is(err, badger.ErrConflict) && attempt < maxTxRetries {
				log.Debugf("db: transaction conflict, retrying (%d)", attempt)
				continue
			}
			return nil, err
		}
		return res, nil
	}
}

func (r *repoManager) Close() {
	if r.gcTicker != nil {
		r.gcTicker.Stop()
		close(r.closeChan)
	}
	if err := r.swapSeq.Release(); err != nil {
		log.WithError(err).Warn("db: failed to release swap sequence")
	}
	if err := r.eventSeq.Release(); err != nil {
		log.WithError(err).Warn("db: failed to release event sequence")
	}
	r.store.Close()
}

func (r *repoManager) startValueLogGC() {
	r.gcTicker = time.NewTicker(30 * time.Minute)

	go func() {
		for {
			select {
			case <-r.closeChan:
				return
			case <-r.gcTicker.C:
				if err := r.store.Badger().RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}
	}()
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: sequenceBandwith,
		Options:          opts,
	})
}

func txFromContext(ctx context.Context) *badger.Txn {
	tx, _ := ctx.Value(txContextKey{}).(*badger.Txn)
	return tx
}

// withTx runs fn in the transaction bound to ctx, or in a new one that is
// committed right away if there is none.
func withTx(
	ctx context.Context, store *badgerhold.Store, update bool,
	fn func(tx *badger.Txn) error,
) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(tx)
	}
	if !update {
		return store.Badger().View(fn)
	}

	var err error
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		if err = store.Badger().Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
