package syncx

import (
	"fmt"
	"sync"
	"time"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
)

// Cond is a condition variable bound to a Mutex. Waiters are woken in the
// order they started waiting. As with any condition variable, callers re-check
// their predicate in a loop around Wait.
type Cond struct {
	L *Mutex

	mu        sync.Mutex
	waiters   []chan struct{}
	destroyed bool
}

// NewCond returns a condition variable using l. l must not be nil.
func NewCond(l *Mutex) *Cond {
	if l == nil {
		panic(fmt.Errorf("%w: cond requires a mutex", errspkg.ErrInvalidArgument))
	}
	return &Cond{L: l}
}

// Wait atomically unlocks c.L and suspends the caller until Signal or
// Broadcast wakes it. c.L is locked again before Wait returns.
func (c *Cond) Wait() {
	ch := c.enqueue()
	c.L.Unlock()
	<-ch
	c.L.Lock()
}

// WaitTimeout is Wait bounded by d. It reports whether the caller was woken
// by Signal or Broadcast rather than by the timeout.
func (c *Cond) WaitTimeout(d time.Duration) bool {
	ch := c.enqueue()
	c.L.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	woken := true
	select {
	case <-ch:
	case <-timer.C:
		// a signal that raced the timer already removed us from the list
		woken = !c.remove(ch)
	}

	c.L.Lock()
	return woken
}

// Signal wakes the longest-waiting goroutine, if any.
func (c *Cond) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return
	}
	close(c.waiters[0])
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
}

// Broadcast wakes every waiting goroutine.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = nil
}

// Waiters returns the number of goroutines currently blocked on c.
func (c *Cond) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Destroy ends the condition variable's life. It fails while goroutines are
// still waiting or when called twice.
func (c *Cond) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return fmt.Errorf("%w: cond already destroyed", errspkg.ErrSyncPrimitiveMisuse)
	}
	if len(c.waiters) > 0 {
		return fmt.Errorf("%w: destroy of cond with %d waiters", errspkg.ErrSyncPrimitiveMisuse, len(c.waiters))
	}
	c.destroyed = true
	return nil
}

func (c *Cond) enqueue() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		panic(fmt.Errorf("%w: wait on destroyed cond", errspkg.ErrSyncPrimitiveMisuse))
	}
	ch := make(chan struct{})
	c.waiters = append(c.waiters, ch)
	return ch
}

func (c *Cond) remove(ch chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}
