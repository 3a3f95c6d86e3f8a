// Package workerpool binds each HTTP request to one of a fixed number of
// workers, each owning its own exclusive storage-backend handle, per
// spec.md §5. It is adapted from the teacher's core.Processor worker-pool
// shape (core/processor.go: buffered channel, sync.WaitGroup, sync.Once
// start, shutdown channel) but repurposed: instead of draining a generic
// Job queue, each worker owns one storage.Backend handle created at pool
// init and never migrated, and Dispatch runs a caller-supplied function
// against whichever worker picks up the task next.
package workerpool

import (
	"context"
	"sync"

	apperrors "github.com/Skryldev/image-processor/errors"
	"github.com/Skryldev/image-processor/storage"
)

// BackendFactory constructs one storage.Backend handle. It is called
// exactly once per worker, at pool Start, so that — in KV mode — each
// worker dials its own connection, and — in filesystem mode — each worker
// still gets an independent (if stateless) handle value, matching
// spec.md §5's "handles are never moved between workers during a request".
type BackendFactory func() (storage.Backend, error)

type task struct {
	ctx  context.Context
	fn   func(storage.Backend)
	done chan struct{}
}

// Pool is a fixed-size worker pool. Each worker processes one request at a
// time to completion, sequentially — concurrency comes from running N
// workers, not from interleaving within one (spec.md §5 "Scheduling
// model").
type Pool struct {
	size    int
	factory BackendFactory

	tasks    chan task
	shutdown chan struct{}
	wg       sync.WaitGroup
	once     sync.Once

	initErrMu sync.Mutex
	initErr   error
}

// New constructs a Pool of size workers, each built via factory. Call
// Start before Dispatch.
func New(size int, factory BackendFactory) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		size:     size,
		factory:  factory,
		tasks:    make(chan task, size*4),
		shutdown: make(chan struct{}),
	}
}

// Start spawns the pool's workers. Safe to call multiple times; only the
// first call has effect (teacher's sync.Once start idiom).
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.size; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop signals every worker to exit after its current task and waits for
// them to drain.
func (p *Pool) Stop() {
	close(p.shutdown)
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	backend, err := p.factory()
	if err != nil {
		p.initErrMu.Lock()
		if p.initErr == nil {
			p.initErr = apperrors.Wrap(apperrors.CategoryConfig, "workerpool.worker.init", err)
		}
		p.initErrMu.Unlock()
		// Keep releasing queued tasks (without running them) so a Dispatch
		// that enqueued before the error was recorded returns it instead of
		// blocking forever.
		for {
			select {
			case <-p.shutdown:
				return
			case t := <-p.tasks:
				close(t.done)
			}
		}
	}
	for {
		select {
		case <-p.shutdown:
			return
		case t := <-p.tasks:
			t.fn(backend)
			close(t.done)
		}
	}
}

// Dispatch runs fn against the next available worker's backend handle and
// blocks until it completes or ctx is canceled. The caller (the HTTP
// handler) owns fn's in-memory buffers throughout — the pool never copies
// or retains them (spec.md §3 "Ownership and lifecycle").
func (p *Pool) Dispatch(ctx context.Context, fn func(storage.Backend)) error {
	p.initErrMu.Lock()
	if p.initErr != nil {
		err := p.initErr
		p.initErrMu.Unlock()
		return err
	}
	p.initErrMu.Unlock()

	t := task{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return apperrors.Wrap(apperrors.CategoryTransient, "workerpool.dispatch", ctx.Err())
	case <-p.shutdown:
		return apperrors.New(apperrors.CategoryConfig, "workerpool.dispatch", apperrors.ErrWorkerPoolFull)
	}
	select {
	case <-t.done:
		p.initErrMu.Lock()
		err := p.initErr
		p.initErrMu.Unlock()
		return err
	case <-ctx.Done():
		// The task may still complete and write to the backend for
		// caching purposes (spec.md §5 "Cancellation and timeouts"); the
		// HTTP write is simply discarded by the caller.
		return apperrors.Wrap(apperrors.CategoryTransient, "workerpool.dispatch", ctx.Err())
	}
}
