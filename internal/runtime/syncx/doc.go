// Package syncx provides the error-checked synchronization primitives the
// worker pool is built from: a Mutex that can be destroyed, a condition
// variable with timed waits, and a joinable thread handle.
//
// Misuse that the caller can observe, such as destroying a locked mutex or
// joining a detached thread, is reported as errors.ErrSyncPrimitiveMisuse.
// Locking or waiting on a destroyed primitive is a programming error and
// panics with the same sentinel.
package syncx
