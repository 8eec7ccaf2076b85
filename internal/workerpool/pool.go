/*
Package workerpool provides a small bounded worker pool used to fan out
warming-loader calls without spawning an unbounded number of goroutines
per warming cycle.
*/
package workerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/promptvault/cache"
)

// Task is a unit of work submitted to a Pool.
type Task func(ctx context.Context)

// Pool runs submitted tasks across a fixed number of long-lived worker
// goroutines, draining a buffered task queue. A task that panics never
// takes the whole pool down with it: the panic is recovered, reported via
// OnCrash if one is set, and the worker keeps running -- equivalent to an
// instant refill, since no worker ever actually exits because of it.
type Pool struct {
	tasks  chan Task
	wg     sync.WaitGroup
	cancel context.CancelFunc

	// OnCrash, if set before the first Submit, is called with
	// cache.ErrWorkerCrash whenever a submitted task panics.
	OnCrash func(error)
}

// New starts a Pool with workers goroutines, each pulling from a queue
// bounded at queueSize. workers and queueSize both fall back to 1 if
// given as zero or negative.
func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan Task, queueSize),
		cancel: cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(ctx)
	}
	return p
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.runTask(ctx, task)
		}
	}
}

func (p *Pool) runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil && p.OnCrash != nil {
			p.OnCrash(fmt.Errorf("%w: %v", cache.ErrWorkerCrash, r))
		}
	}()
	task(ctx)
}

// Submit enqueues a task, blocking until a queue slot is free or ctx is
// canceled. Returns ctx.Err() if the context is done first.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues a task without blocking, reporting false if the
// queue is full.
func (p *Pool) TrySubmit(task Task) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Close stops accepting new work, cancels in-flight task contexts, and
// waits for all workers to exit.
func (p *Pool) Close() {
	close(p.tasks)
	p.cancel()
	p.wg.Wait()
}
