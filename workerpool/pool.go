// Package workerpool implements the engine's bounded-parallelism
// executor: up to N tasks run concurrently, a submitting call blocks
// while the pool is saturated, and a task panic is isolated rather than
// taking the pool down. It is built on sourcegraph/conc, generalizing the
// teacher's hand-rolled semaphore-plus-waitgroup pattern in
// crawler.crawlPage into a reusable component.
package workerpool

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Pool accepts zero-argument work items and runs up to a configured
// maximum concurrently.
type Pool struct {
	logger  zerolog.Logger
	inner   *pool.Pool
	running int64
	closed  int32
}

// New creates a Pool bounded to maxConcurrent simultaneous tasks.
// maxConcurrent must be >= 1.
func New(maxConcurrent int, logger zerolog.Logger) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pool{
		logger: logger,
		inner:  pool.New().WithMaxGoroutines(maxConcurrent),
	}
}

// DoWork submits task, blocking the caller if every slot is currently
// occupied. A panic inside task is recovered and logged; it never
// propagates to the pool or to the caller, and the slot is released as
// soon as task returns. DoWork is a no-op once Shutdown has been called.
func (p *Pool) DoWork(task func()) {
	if atomic.LoadInt32(&p.closed) == 1 {
		return
	}
	atomic.AddInt64(&p.running, 1)
	p.inner.Go(func() {
		defer atomic.AddInt64(&p.running, -1)
		var catcher panics.Catcher
		catcher.Try(task)
		if recovered := catcher.Recovered(); recovered != nil {
			p.logger.Error().Err(recovered.AsError()).Msg("worker task panicked")
		}
	})
}

// HasRunningWork reports whether at least one submitted task has not yet
// completed.
func (p *Pool) HasRunningWork() bool {
	return atomic.LoadInt64(&p.running) > 0
}

// Shutdown waits for every in-flight task to finish and rejects any
// subsequent DoWork call.
func (p *Pool) Shutdown() {
	atomic.StoreInt32(&p.closed, 1)
	p.inner.Wait()
}
