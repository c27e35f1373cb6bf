package http

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

const DefaultWorkerPoolSize = 8

var ErrPoolStopped = errors.New("http: worker pool is stopped")

type PoolState int32

const (
	PoolRunning PoolState = iota
	PoolDraining
	PoolStopped
)

func (s PoolState) String() string {
	switch s {
	case PoolRunning:
		return "running"
	case PoolDraining:
		return "draining"
	case PoolStopped:
		return "stopped"
	}
	return "unknown"
}

// WorkerPool runs a fixed number of workers over one FIFO queue. The queue is
// guarded by a single mutex that is never held while an item is processed.
type WorkerPool[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	head    int
	state   PoolState
	running int
	done    chan struct{}

	size    int
	busy    atomic.Int64
	handler func(T)
	logger  *slog.Logger
}

// NewWorkerPool starts size workers that each call handler for one item at a
// time. The size is fixed for the life of the pool. Recovered panics are
// logged to logger, or to slog.Default when it is nil.
func NewWorkerPool[T any](size int, logger *slog.Logger, handler func(T)) *WorkerPool[T] {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	wp := &WorkerPool[T]{
		queue:   make([]T, 0, size),
		running: size,
		done:    make(chan struct{}),
		size:    size,
		handler: handler,
		logger:  logger,
	}
	wp.cond = sync.NewCond(&wp.mu)

	for range size {
		go wp.work()
	}

	return wp
}

// Enqueue appends item to the queue and wakes one idle worker. Items are still
// accepted while draining; once every worker has exited ErrPoolStopped is
// returned and the caller keeps ownership of item.
func (wp *WorkerPool[T]) Enqueue(item T) error {
	wp.mu.Lock()
	if wp.state == PoolStopped {
		wp.mu.Unlock()
		return ErrPoolStopped
	}
	wp.queue = append(wp.queue, item)
	wp.mu.Unlock()

	wp.cond.Signal()
	return nil
}

// Shutdown stops workers from waiting for new items and blocks until the queue
// is drained and every worker has returned, or ctx is done.
func (wp *WorkerPool[T]) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if wp.state == PoolRunning {
		wp.state = PoolDraining
	}
	wp.mu.Unlock()

	wp.cond.Broadcast()

	select {
	case <-wp.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the pool is stopped.
func (wp *WorkerPool[T]) Done() <-chan struct{} {
	return wp.done
}

func (wp *WorkerPool[T]) State() PoolState {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.state
}

// Len reports the number of queued items not yet picked up by a worker.
func (wp *WorkerPool[T]) Len() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return len(wp.queue) - wp.head
}

// Busy reports the number of workers currently processing an item.
func (wp *WorkerPool[T]) Busy() int {
	return int(wp.busy.Load())
}

func (wp *WorkerPool[T]) Size() int {
	return wp.size
}

func (wp *WorkerPool[T]) work() {
	for {
		item, ok := wp.next()
		if !ok {
			return
		}
		wp.process(item)
	}
}

// next blocks for the next item. It returns false once the pool is draining
// and the queue is empty; the last worker out marks the pool stopped.
func (wp *WorkerPool[T]) next() (T, bool) {
	var zero T

	wp.mu.Lock()
	defer wp.mu.Unlock()

	for wp.state == PoolRunning && wp.head == len(wp.queue) {
		wp.cond.Wait()
	}

	if wp.head == len(wp.queue) {
		wp.running--
		if wp.running == 0 {
			wp.state = PoolStopped
			close(wp.done)
		}
		return zero, false
	}

	item := wp.queue[wp.head]
	wp.queue[wp.head] = zero
	wp.head++

	switch {
	case wp.head == len(wp.queue):
		wp.queue = wp.queue[:0]
		wp.head = 0
	case wp.head > 1024 && wp.head*2 > len(wp.queue):
		n := copy(wp.queue, wp.queue[wp.head:])
		clear(wp.queue[n:])
		wp.queue = wp.queue[:n]
		wp.head = 0
	}

	return item, true
}

func (wp *WorkerPool[T]) process(item T) {
	wp.busy.Add(1)
	defer wp.busy.Add(-1)

	defer func() {
		if recovered := recover(); recovered != nil {
			wp.logger.Error("worker recovered from panic", "panic", recovered, "stack", string(debug.Stack()))
		}
	}()

	wp.handler(item)
}
