package session

import (
	"sync"

	"whisper/internal/domain"
)

// Locker serializes builder and cipher operations. Lock blocks until the
// caller may touch the session for addr and returns the matching unlock.
type Locker interface {
	Lock(addr domain.Address) (unlock func())
}

// GlobalLocker is the default: one process-wide mutex for every address.
var GlobalLocker Locker = &globalLocker{}

type globalLocker struct {
	mu sync.Mutex
}

func (g *globalLocker) Lock(domain.Address) func() {
	g.mu.Lock()
	return g.mu.Unlock
}

// perAddress is shared by every builder and cipher that opts into
// per-address locking so they agree on one table.
var perAddress = NewAddressLocker()

// NewAddressLocker returns a keyed mutex table. Operations on one address
// stay ordered; unrelated addresses proceed in parallel.
func NewAddressLocker() Locker {
	return &addressLocker{locks: make(map[domain.Address]*addressLock)}
}

type addressLocker struct {
	mu    sync.Mutex
	locks map[domain.Address]*addressLock
}

type addressLock struct {
	mu   sync.Mutex
	refs int
}

func (a *addressLocker) Lock(addr domain.Address) func() {
	a.mu.Lock()
	l, ok := a.locks[addr]
	if !ok {
		l = &addressLock{}
		a.locks[addr] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(a.locks, addr)
		}
		a.mu.Unlock()
	}
}
