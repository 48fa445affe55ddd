package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func startedBridge(t *testing.T, workers int) *Bridge {
	t.Helper()
	b := New(workers)
	b.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = b.Stop(ctx)
	})
	return b
}

func TestRunBlockingPropagatesResult(t *testing.T) {
	b := startedBridge(t, 2)

	if err := b.RunBlocking(context.Background(), "ok", func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("RunBlocking: %v", err)
	}

	boom := errors.New("boom")
	err := b.RunBlocking(context.Background(), "fail", func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error not propagated: %v", err)
	}
}

func TestRunBlockingRecoversPanic(t *testing.T) {
	b := startedBridge(t, 2)

	err := b.RunBlocking(context.Background(), "explode", func(ctx context.Context) error {
		panic("kaboom")
	})
	if err == nil {
		t.Fatal("panic did not surface as error")
	}
	// The pool must survive a panicking task.
	if err := b.RunBlocking(context.Background(), "after", func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("pool dead after panic: %v", err)
	}
}

func TestRunBlockingBeforeStart(t *testing.T) {
	b := New(2)
	err := b.RunBlocking(context.Background(), "early", func(ctx context.Context) error {
		return nil
	})
	if err == nil {
		t.Fatal("RunBlocking accepted work before Start")
	}
}

func TestRunBlockingAfterStop(t *testing.T) {
	b := New(2)
	b.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	err := b.RunBlocking(context.Background(), "late", func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	b := startedBridge(t, 2)

	release := make(chan struct{})
	running := make(chan struct{}, 3)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.RunBlocking(context.Background(), "hold", func(ctx context.Context) error {
				running <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-running
	<-running

	// Both workers are occupied: 3rd submission must wait for a free
	// worker, not run concurrently.
	third := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.RunBlocking(context.Background(), "queued", func(ctx context.Context) error {
			close(third)
			return nil
		})
	}()

	select {
	case <-third:
		t.Fatal("third task ran while both workers were busy")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-third:
	case <-time.After(time.Second):
		t.Fatal("third task never ran after workers freed")
	}
	wg.Wait()
}

func TestStopWaitsForInflight(t *testing.T) {
	b := New(1)
	b.Start(context.Background())

	started := make(chan struct{})
	finish := make(chan struct{})
	go func() {
		_ = b.RunBlocking(context.Background(), "slow", func(ctx context.Context) error {
			close(started)
			<-finish
			return nil
		})
	}()
	<-started

	// Stop with a short bound while the task still runs: must report
	// the deadline, not pretend to have drained.
	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := b.Stop(shortCtx); err == nil {
		t.Fatal("Stop returned nil with a task still in flight")
	}

	close(finish)
	ctx, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := b.Stop(ctx); err != nil {
		t.Fatalf("Stop after drain: %v", err)
	}
}

func TestRunBlockingHonorsCallerCancelBeforeSubmit(t *testing.T) {
	b := New(1)
	b.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = b.Stop(ctx)
	})

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	go func() {
		_ = b.RunBlocking(context.Background(), "hold", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.RunBlocking(ctx, "cancelled", func(ctx context.Context) error {
		t.Error("cancelled task must not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
