package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoolRunsTasksConcurrently(t *testing.T) {
	pool := New(4, zerolog.Nop())
	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		pool.DoWork(func() {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
	}
	wg.Wait()
	pool.Shutdown()
	if got := atomic.LoadInt64(&counter); got != 10 {
		t.Errorf("Pool#DoWork failed: expected 10 tasks run, got %d", got)
	}
}

func TestPoolHasRunningWork(t *testing.T) {
	pool := New(1, zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})
	pool.DoWork(func() {
		close(started)
		<-release
	})
	<-started
	if !pool.HasRunningWork() {
		t.Errorf("Pool#HasRunningWork failed: expected true while task in flight")
	}
	close(release)
	pool.Shutdown()
	if pool.HasRunningWork() {
		t.Errorf("Pool#HasRunningWork failed: expected false after shutdown")
	}
}

func TestPoolRecoversTaskPanic(t *testing.T) {
	pool := New(2, zerolog.Nop())
	done := make(chan struct{})
	pool.DoWork(func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TestPoolRecoversTaskPanic: task did not complete")
	}
	pool.Shutdown()
}
