package runtime

import (
	"fmt"
	"runtime/debug"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
	"github.com/drblury/corert/internal/runtime/syncx"
)

// PoolStats is a point-in-time view of the worker pool.
type PoolStats struct {
	Workers   int    `json:"workers"`
	Queued    int    `json:"queued"`
	InFlight  int    `json:"in_flight"`
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Closed    bool   `json:"closed"`
}

// workerPool runs tasks on a fixed set of threads. inFlight counts tasks that
// are queued or running, so it reaches zero only when the queue is empty and
// every worker is idle.
type workerPool struct {
	mu       *syncx.Mutex
	notEmpty *syncx.Cond
	drained  *syncx.Cond

	queue        []Task
	inFlight     int
	closed       bool
	shuttingDown bool

	submitted uint64
	completed uint64
	failed    uint64
	dropped   uint64

	size    int
	threads []*syncx.Thread
	run     func(worker int, t Task) error
	// recovered, when set, is told about panics that escaped run.
	recovered func(worker int, t Task, err error)
}

// newWorkerPool starts workers threads that hand each task to run. recovered
// may be nil.
func newWorkerPool(workers int, run func(worker int, t Task) error, recovered func(worker int, t Task, err error)) (*workerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if run == nil {
		return nil, fmt.Errorf("%w: pool dispatch function is nil", errspkg.ErrInvalidArgument)
	}

	mu := syncx.NewMutex()
	p := &workerPool{
		mu:        mu,
		notEmpty:  syncx.NewCond(mu),
		drained:   syncx.NewCond(mu),
		size:      workers,
		run:       run,
		recovered: recovered,
	}

	for i := 0; i < workers; i++ {
		th, err := syncx.Spawn(p.work, i, false)
		if err != nil {
			p.shutdown()
			return nil, err
		}
		p.threads = append(p.threads, th)
	}
	return p, nil
}

// submit appends t to the queue. It never blocks.
func (p *workerPool) submit(t Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errspkg.ErrQueueClosed
	}
	p.queue = append(p.queue, t)
	p.inFlight++
	p.submitted++
	p.notEmpty.Signal()
	return nil
}

func (p *workerPool) work(arg any) {
	worker := arg.(int)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.shuttingDown {
			p.notEmpty.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue[0] = Task{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		err := p.dispatch(worker, t)

		p.mu.Lock()
		if err != nil {
			p.failed++
		} else {
			p.completed++
		}
		p.inFlight--
		if p.inFlight == 0 {
			p.drained.Signal()
		}
		p.mu.Unlock()
	}
}

// dispatch calls run and turns a panic into a TaskPanicError, so a worker
// always survives to account for the task.
func (p *workerPool) dispatch(worker int, t Task) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		err = &errspkg.TaskPanicError{Value: rec, Stack: debug.Stack()}
		p.report(worker, t, err)
	}()
	return p.run(worker, t)
}

func (p *workerPool) report(worker int, t Task, err error) {
	if p.recovered == nil {
		return
	}
	defer func() { _ = recover() }()
	p.recovered(worker, t, err)
}

// waitTasks blocks until every task submitted so far has finished. All
// concurrent waiters are released together.
func (p *workerPool) waitTasks() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.inFlight > 0 {
		p.drained.Wait()
	}
	p.drained.Broadcast()
}

// close stops accepting submissions. Queued tasks still run.
func (p *workerPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// shutdown discards anything still queued, stops the workers and joins them.
// It returns the number of discarded tasks.
func (p *workerPool) shutdown() int {
	p.mu.Lock()
	p.closed = true
	p.shuttingDown = true
	dropped := len(p.queue)
	p.queue = nil
	p.inFlight -= dropped
	p.dropped += uint64(dropped)
	p.notEmpty.Broadcast()
	if p.inFlight == 0 {
		p.drained.Broadcast()
	}
	threads := p.threads
	p.threads = nil
	p.mu.Unlock()

	for _, th := range threads {
		_ = th.Join()
	}
	return dropped
}

func (p *workerPool) stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Workers:   p.size,
		Queued:    len(p.queue),
		InFlight:  p.inFlight,
		Submitted: p.submitted,
		Completed: p.completed,
		Failed:    p.failed,
		Dropped:   p.dropped,
		Closed:    p.closed,
	}
}
