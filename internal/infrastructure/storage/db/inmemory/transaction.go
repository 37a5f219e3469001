package inmemory

import "context"

type txContextKey struct{}

// transaction journals the inverse of every write made through a context
// bound to it, so that the writes can be undone if the handler fails.
// A write transaction holds the writer lock of the store from start to
// end, hence the undo journal never restores over a concurrent write.
type transaction struct {
	readOnly bool
	undo     []func(s *inmemoryStore)
}

func (tx *transaction) rollback(s *inmemoryStore) {
	if len(tx.undo) <= 0 {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i](s)
	}
	tx.undo = nil
}

// onRollback registers fn to be run if the transaction bound to ctx, if
// any, is rolled back. fn runs with the store lock held.
func onRollback(ctx context.Context, fn func(s *inmemoryStore)) {
	if tx, ok := ctx.Value(txContextKey{}).(*transaction); ok {
		tx.undo = append(tx.undo, fn)
	}
}

// beginWrite checks that a write is allowed through ctx. Writes outside a
// transaction take the writer lock for their own duration, those within a
// write transaction run under the lock it already holds.
func (s *inmemoryStore) beginWrite(ctx context.Context) (func(), error) {
	if tx, ok := ctx.Value(txContextKey{}).(*transaction); ok {
		if tx.readOnly {
			return nil, ErrReadOnlyTx
		}
		return func() {}, nil
	}

	s.writer.Lock()
	return s.writer.Unlock, nil
}
