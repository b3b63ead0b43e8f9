package syncx

import (
	"fmt"
	"runtime/debug"
	"sync"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
)

type threadState int

const (
	threadJoinable threadState = iota
	threadDetached
	threadJoined
)

// Thread is a handle to a goroutine started by Spawn. Exactly one of Join or
// Detach may be called on it.
type Thread struct {
	done chan struct{}

	mu    sync.Mutex
	state threadState
	err   error
}

// Spawn runs entry(arg) on a new goroutine. A detached thread cannot be
// joined. A panic in entry is recovered and reported by Join.
func Spawn(entry func(arg any), arg any, detached bool) (*Thread, error) {
	if entry == nil {
		return nil, fmt.Errorf("%w: thread entry is required", errspkg.ErrInvalidArgument)
	}

	t := &Thread{done: make(chan struct{})}
	if detached {
		t.state = threadDetached
	}

	go t.run(entry, arg)
	return t, nil
}

func (t *Thread) run(entry func(arg any), arg any) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.mu.Lock()
			t.err = &errspkg.TaskPanicError{Value: r, Stack: debug.Stack()}
			t.mu.Unlock()
		}
	}()
	entry(arg)
}

// Join blocks until the thread's entry function returns. It returns the
// recovered panic, if the entry panicked.
func (t *Thread) Join() error {
	t.mu.Lock()
	switch t.state {
	case threadDetached:
		t.mu.Unlock()
		return fmt.Errorf("%w: join of detached thread", errspkg.ErrSyncPrimitiveMisuse)
	case threadJoined:
		t.mu.Unlock()
		return fmt.Errorf("%w: thread already joined", errspkg.ErrSyncPrimitiveMisuse)
	}
	t.state = threadJoined
	t.mu.Unlock()

	<-t.done

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Detach releases the handle. The goroutine keeps running to completion.
func (t *Thread) Detach() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case threadDetached:
		return fmt.Errorf("%w: thread already detached", errspkg.ErrSyncPrimitiveMisuse)
	case threadJoined:
		return fmt.Errorf("%w: detach of joined thread", errspkg.ErrSyncPrimitiveMisuse)
	}
	t.state = threadDetached
	return nil
}

// Done is closed when the entry function returns.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}
