package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrAllocationFailure   = sterrors.New("corert: allocation failure")
	ErrInvalidArgument     = sterrors.New("corert: invalid argument")
	ErrRuntimeNotReady     = sterrors.New("corert: runtime not ready")
	ErrQueueClosed         = sterrors.New("corert: task queue closed")
	ErrModuleInitFailure   = sterrors.New("corert: module init failure")
	ErrSyncPrimitiveMisuse = sterrors.New("corert: sync primitive misuse")
)

// Phase names the lifecycle step a module failed in.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseShutdown Phase = "shutdown"
)

// ModuleError reports a module callback failure. Errors from the init phase
// match ErrModuleInitFailure with errors.Is.
type ModuleError struct {
	Module string
	Phase  Phase
	Err    error
}

func (e *ModuleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("corert: module %q %s failed", e.Module, e.Phase)
	}
	return fmt.Sprintf("corert: module %q %s failed: %v", e.Module, e.Phase, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

func (e *ModuleError) Is(target error) bool {
	return target == ErrModuleInitFailure && e.Phase == PhaseInit
}

// TaskPanicError carries a panic recovered from a task body.
type TaskPanicError struct {
	Value any
	Stack []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("corert: task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Status codes returned by Code. Zero means success.
const (
	CodeOK                  = 0
	CodeAllocationFailure   = -1
	CodeInvalidArgument     = -2
	CodeRuntimeNotReady     = -3
	CodeQueueClosed         = -4
	CodeModuleInitFailure   = -5
	CodeSyncPrimitiveMisuse = -6
	CodeUnknown             = -100
)

// Code maps err onto a stable integer status for callers that cannot consume
// Go errors directly.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case sterrors.Is(err, ErrAllocationFailure):
		return CodeAllocationFailure
	case sterrors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case sterrors.Is(err, ErrQueueClosed):
		return CodeQueueClosed
	case sterrors.Is(err, ErrRuntimeNotReady):
		return CodeRuntimeNotReady
	case sterrors.Is(err, ErrModuleInitFailure):
		return CodeModuleInitFailure
	case sterrors.Is(err, ErrSyncPrimitiveMisuse):
		return CodeSyncPrimitiveMisuse
	default:
		return CodeUnknown
	}
}
