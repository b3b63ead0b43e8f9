package runtime

import (
	"fmt"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
)

// AllocFunc returns a buffer of exactly size bytes, or nil when it cannot.
type AllocFunc func(size int) []byte

// FreeFunc releases a buffer returned by the paired AllocFunc.
type FreeFunc func(buf []byte)

// AllocHooks route runtime-owned buffers through caller-provided functions.
// Nil members fall back to the Go allocator.
type AllocHooks struct {
	Alloc AllocFunc
	Free  FreeFunc
}

func (h AllocHooks) withDefaults() AllocHooks {
	if h.Alloc == nil {
		h.Alloc = func(size int) []byte { return make([]byte, size) }
	}
	if h.Free == nil {
		h.Free = func([]byte) {}
	}
	return h
}

// SetAllocHooks replaces the allocator hooks. Buffers allocated earlier are
// still released with the hooks that produced them.
func (r *Runtime) SetAllocHooks(alloc AllocFunc, free FreeFunc) {
	r.allocMu.Lock()
	defer r.allocMu.Unlock()
	r.alloc = AllocHooks{Alloc: alloc, Free: free}.withDefaults()
}

// Alloc returns a buffer of size bytes from the current allocator hooks. The
// hook runs unlocked, so it may call back into the runtime.
func (r *Runtime) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: allocation size %d", errspkg.ErrInvalidArgument, size)
	}

	r.allocMu.Lock()
	hooks := r.alloc
	r.allocMu.Unlock()

	buf := hooks.Alloc(size)
	if buf == nil || len(buf) < size {
		return nil, fmt.Errorf("%w: %d bytes", errspkg.ErrAllocationFailure, size)
	}
	buf = buf[:size]

	r.allocMu.Lock()
	r.allocations[allocKey(buf)] = hooks.Free
	r.allocMu.Unlock()
	return buf, nil
}

// Free releases buf with the hook that allocated it. Buffers not returned by
// Alloc are rejected.
func (r *Runtime) Free(buf []byte) error {
	if cap(buf) == 0 {
		return fmt.Errorf("%w: free of empty buffer", errspkg.ErrInvalidArgument)
	}

	r.allocMu.Lock()
	key := allocKey(buf)
	free, ok := r.allocations[key]
	delete(r.allocations, key)
	r.allocMu.Unlock()

	if !ok {
		return fmt.Errorf("%w: buffer was not allocated by this runtime", errspkg.ErrInvalidArgument)
	}
	free(buf)
	return nil
}

func allocKey(buf []byte) *byte {
	return &buf[:cap(buf)][0]
}
