// Package bridge runs blocking work on a small fixed worker pool. The
// engine's callers block in RunBlocking while the actual I/O happens
// on a pool goroutine; the caller thread itself never touches the
// network.
package bridge

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "bridge")

var (
	// ErrBusy is returned when a caller would overlap an in-flight
	// exclusive operation instead of queueing behind it.
	ErrBusy = errors.New("bridge: operation already in flight")

	// ErrStopped is returned for work submitted after Stop.
	ErrStopped = errors.New("bridge: stopped")

	errNotStarted = errors.New("bridge: not started")
)

const defaultWorkers = 2

type task struct {
	name string
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Bridge is a fixed pool of workers fed by direct handoff: a submit
// only succeeds when a live worker picks the task up, so no task can
// sit in a queue across Stop with its caller waiting forever.
type Bridge struct {
	workers int

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc

	ch   chan task
	wg   sync.WaitGroup
	once sync.Once
}

func New(workers int) *Bridge {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Bridge{
		workers: workers,
		ch:      make(chan task),
	}
}

// Start launches the workers. Safe to call more than once; only the
// first call does anything.
func (b *Bridge) Start(ctx context.Context) {
	b.once.Do(func() {
		b.mu.Lock()
		b.ctx, b.cancel = context.WithCancel(ctx)
		b.mu.Unlock()

		for i := 0; i < b.workers; i++ {
			b.wg.Add(1)
			go func(workerID int) {
				defer b.wg.Done()
				for {
					select {
					case <-b.ctx.Done():
						return
					case t := <-b.ch:
						t.done <- b.run(workerID, t)
					}
				}
			}(i)
		}

		log.Infof("bridge started (workers=%d)", b.workers)
	})
}

// Stop cancels the pool and waits for in-flight work, bounded by ctx.
// A task already handed to a worker runs to completion; nothing new is
// accepted.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("bridge stopped")
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "stopping bridge")
	}
}

// RunBlocking hands fn to a worker and blocks until it returns,
// propagating its error. The fn receives the caller's ctx; honoring it
// is the fn's job, RunBlocking never abandons work it started.
func (b *Bridge) RunBlocking(ctx context.Context, name string, fn func(context.Context) error) error {
	b.mu.RLock()
	poolCtx := b.ctx
	b.mu.RUnlock()
	if poolCtx == nil {
		return errNotStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t := task{name: name, ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case b.ch <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-poolCtx.Done():
		return ErrStopped
	}
	return <-t.done
}

func (b *Bridge) run(workerID int, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("task panic: worker=%d name=%s panic=%v", workerID, t.name, r)
			err = errors.Errorf("task %s panicked: %v", t.name, r)
		}
	}()
	return t.fn(t.ctx)
}
