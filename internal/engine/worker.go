package engine

import (
	"context"
	"runtime"
	"sync"
)

// Pool runs CPU-bound compositing off the request goroutines. Worker count
// and queue depth are fixed; a full queue is surfaced as ErrBacklogFull so
// the transport can answer 503 instead of piling up latency.
type Pool struct {
	tasks    chan task
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type task struct {
	fn   func()
	done chan struct{}
}

func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}

	p := &Pool{tasks: make(chan task, queueDepth)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.fn()
		close(t.done)
	}
}

// Do enqueues fn and waits for it to finish. Returns ErrBacklogFull when the
// queue is saturated, or the context error if the caller goes away while
// waiting. A task that already started keeps running to completion; the
// callback must do its own cancellation checks at stage boundaries.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}

	select {
	case p.tasks <- t:
	default:
		return ErrBacklogFull
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for running tasks to drain.
func (p *Pool) Close() {
	p.stopOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
