package syncx

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
)

func TestSpawnAndJoin(t *testing.T) {
	var got atomic.Value

	th, err := Spawn(func(arg any) { got.Store(arg) }, "payload", false)
	require.NoError(t, err)
	require.NoError(t, th.Join())

	assert.Equal(t, "payload", got.Load())
	select {
	case <-th.Done():
	default:
		t.Fatal("Done should be closed after Join")
	}
}

func TestSpawnRequiresEntry(t *testing.T) {
	th, err := Spawn(nil, nil, false)
	assert.Nil(t, th)
	assert.ErrorIs(t, err, errspkg.ErrInvalidArgument)
}

func TestJoinTwiceIsMisuse(t *testing.T) {
	th, err := Spawn(func(any) {}, nil, false)
	require.NoError(t, err)

	require.NoError(t, th.Join())
	assert.ErrorIs(t, th.Join(), errspkg.ErrSyncPrimitiveMisuse)
	assert.ErrorIs(t, th.Detach(), errspkg.ErrSyncPrimitiveMisuse)
}

func TestDetachedThreadCannotBeJoined(t *testing.T) {
	release := make(chan struct{})
	th, err := Spawn(func(any) { <-release }, nil, true)
	require.NoError(t, err)

	assert.ErrorIs(t, th.Join(), errspkg.ErrSyncPrimitiveMisuse)
	assert.ErrorIs(t, th.Detach(), errspkg.ErrSyncPrimitiveMisuse)

	close(release)
	select {
	case <-th.Done():
	case <-time.After(time.Second):
		t.Fatal("detached thread did not finish")
	}
}

func TestDetachThenJoinIsMisuse(t *testing.T) {
	th, err := Spawn(func(any) {}, nil, false)
	require.NoError(t, err)

	require.NoError(t, th.Detach())
	assert.ErrorIs(t, th.Join(), errspkg.ErrSyncPrimitiveMisuse)
}

func TestJoinReportsPanic(t *testing.T) {
	th, err := Spawn(func(any) { panic("worker exploded") }, nil, false)
	require.NoError(t, err)

	joinErr := th.Join()
	var panicErr *errspkg.TaskPanicError
	require.ErrorAs(t, joinErr, &panicErr)
	assert.Equal(t, "worker exploded", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}
