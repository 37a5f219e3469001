package application

import "sync"

// swapLocker serializes the transitions of each swap record. Locks are
// reference counted and dropped once no goroutine holds or waits for them.
type swapLocker struct {
	lock  sync.Mutex
	locks map[uint64]*swapLock
}

type swapLock struct {
	sync.Mutex
	refs int
}

func newSwapLocker() *swapLocker {
	return &swapLocker{locks: make(map[uint64]*swapLock)}
}

// acquire blocks until the caller holds the lock of the given swap and
// returns the function to release it.
func (l *swapLocker) acquire(swapID uint64) func() {
	l.lock.Lock()
	sl, ok := l.locks[swapID]
	if !ok {
		sl = &swapLock{}
		l.locks[swapID] = sl
	}
	sl.refs++
	l.lock.Unlock()

	sl.Lock()

	return func() {
		sl.Unlock()

		l.lock.Lock()
		sl.refs--
		if sl.refs <= 0 {
			delete(l.locks, swapID)
		}
		l.lock.Unlock()
	}
}
