package syncx

import (
	"fmt"
	"sync"
	"sync/atomic"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
)

// Mutex is a mutual exclusion lock with an explicit end of life.
type Mutex struct {
	mu        sync.Mutex
	destroyed atomic.Bool
}

// NewMutex returns an unlocked, live mutex.
func NewMutex() *Mutex {
	return &Mutex{}
}

// Lock blocks until the mutex is acquired. It panics with an error matching
// ErrSyncPrimitiveMisuse if the mutex was destroyed.
func (m *Mutex) Lock() {
	m.mustBeAlive("lock")
	m.mu.Lock()
}

// TryLock acquires the mutex if it is free and reports whether it did. It
// never blocks, and panics like Lock on a destroyed mutex.
func (m *Mutex) TryLock() bool {
	m.mustBeAlive("trylock")
	return m.mu.TryLock()
}

// Unlock releases the mutex. Unlocking a mutex that is not held is a fatal
// runtime error, as with sync.Mutex; unlocking a destroyed one panics.
func (m *Mutex) Unlock() {
	m.mustBeAlive("unlock")
	m.mu.Unlock()
}

// Destroy ends the mutex's life. It fails if the mutex is held or was already
// destroyed.
func (m *Mutex) Destroy() error {
	if m.destroyed.Load() {
		return fmt.Errorf("%w: mutex already destroyed", errspkg.ErrSyncPrimitiveMisuse)
	}
	if !m.mu.TryLock() {
		return fmt.Errorf("%w: destroy of locked mutex", errspkg.ErrSyncPrimitiveMisuse)
	}
	defer m.mu.Unlock()
	if !m.destroyed.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: mutex already destroyed", errspkg.ErrSyncPrimitiveMisuse)
	}
	return nil
}

func (m *Mutex) mustBeAlive(op string) {
	if m.destroyed.Load() {
		panic(fmt.Errorf("%w: %s of destroyed mutex", errspkg.ErrSyncPrimitiveMisuse, op))
	}
}
