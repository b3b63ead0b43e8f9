package runtime

import "time"

// Clock reports milliseconds since an arbitrary fixed point. Values never go
// backwards.
type Clock interface {
	NowMs() uint64
}

type monotonicClock struct {
	start time.Time
}

// NewClock returns a Clock backed by the monotonic reading of time.Now.
func NewClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) NowMs() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}

var processClock = NewClock()

// NowMs returns monotonic milliseconds since the process loaded the package.
func NowMs() uint64 {
	return processClock.NowMs()
}
