package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllSubmittedTasks(t *testing.T) {
	p := New(4, 16)
	defer p.Close()

	var count int64
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if err := p.Submit(ctx, func(context.Context) { atomic.AddInt64(&count, 1) }); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&count) < 50 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt64(&count); got != 50 {
		t.Fatalf("expected 50 tasks run, got %d", got)
	}
}

func TestPoolRecoversPanickingTaskAndKeepsRunning(t *testing.T) {
	p := New(1, 4)
	defer p.Close()

	var crashes int64
	p.OnCrash = func(err error) { atomic.AddInt64(&crashes, 1) }

	ctx := context.Background()
	p.Submit(ctx, func(context.Context) { panic("boom") })

	var ran int64
	if err := p.Submit(ctx, func(context.Context) { atomic.AddInt64(&ran, 1) }); err != nil {
		t.Fatalf("submit after panic: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&ran) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("expected the worker to keep processing tasks after a panic")
	}
	if atomic.LoadInt64(&crashes) != 1 {
		t.Fatalf("expected OnCrash to fire once, got %d", crashes)
	}
}

func TestTrySubmitReportsFullQueue(t *testing.T) {
	p := New(1, 1)
	defer p.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	p.Submit(context.Background(), func(context.Context) {
		close(started)
		<-block
	})
	<-started

	if !p.TrySubmit(func(context.Context) {}) {
		t.Fatalf("expected first queued task to succeed")
	}
	if p.TrySubmit(func(context.Context) {}) {
		t.Fatalf("expected queue-full task to be rejected")
	}
	close(block)
}
