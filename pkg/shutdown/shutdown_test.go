package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdownRunsAllCallbacks(t *testing.T) {
	m := NewManager()

	var ran int64
	for i := 0; i < 3; i++ {
		m.OnShutdown(func(ctx context.Context) {
			atomic.AddInt64(&ran, 1)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Shutdown(ctx)

	if got := atomic.LoadInt64(&ran); got != 3 {
		t.Fatalf("ran = %d, want 3", got)
	}
}

func TestShutdownHonorsDeadline(t *testing.T) {
	m := NewManager()

	release := make(chan struct{})
	m.OnShutdown(func(ctx context.Context) {
		<-release
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	m.Shutdown(ctx)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("shutdown blocked for %s despite deadline", elapsed)
	}
	close(release)
}

func TestShutdownWithNoCallbacks(t *testing.T) {
	m := NewManager()
	m.OnShutdown(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Shutdown(ctx)
}
