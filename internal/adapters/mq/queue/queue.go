// Package queue is the bounded command mailbox of a graph engine.
//
// Producers on any goroutine enqueue commands; the engine loop is the only
// consumer, so every command runs with exclusive access to the graph.
package queue

import (
	"context"
	"sync"

	"github.com/okian/wordgraph/pkg/metrics"
)

const defaultCapacity = 1024

// Command is one unit of work for the engine loop.
type Command struct {
	// Name labels the command in logs and metrics.
	Name string
	// Do runs on the loop goroutine.
	Do func(ctx context.Context)
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command without blocking. It fails with ErrFull or
	// ErrClosed.
	Enqueue(ctx context.Context, c Command) error

	// EnqueueWait blocks until the command fits, ctx ends or the queue closes.
	EnqueueWait(ctx context.Context, c Command) error

	// Dequeue returns the channel commands arrive on. It is closed by Close.
	Dequeue() <-chan Command

	// Len returns the current number of queued commands.
	Len() int

	// Close stops accepting commands.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands chan Command
	capacity int

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.commands = make(chan Command, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)

	return q
}

// Enqueue adds a command to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Command) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject("closed")
		return ErrClosed
	}

	select {
	case q.commands <- c:
		q.accepted()
		return nil
	case <-ctx.Done():
		q.reject("context_cancelled")
		return ctx.Err()
	default:
		q.reject("queue_full")
		return ErrFull
	}
}

// EnqueueWait adds a command, waiting for room if the queue is full.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, c Command) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject("closed")
		return ErrClosed
	}

	select {
	case q.commands <- c:
		q.accepted()
		return nil
	case <-ctx.Done():
		q.reject("context_cancelled")
		return ctx.Err()
	case <-q.done:
		q.reject("closed")
		return ErrClosed
	}
}

// Dequeue returns the command channel.
func (q *InMemoryQueue) Dequeue() <-chan Command { return q.commands }

// Len returns the current number of queued commands and refreshes the gauges.
func (q *InMemoryQueue) Len() int {
	size := len(q.commands)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops the queue. Commands already buffered can still be drained.
func (q *InMemoryQueue) Close() error {
	// Wake blocked EnqueueWait callers before taking the write lock they hold
	// a read lock against.
	q.signalDone()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.commands)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) signalDone() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

func (q *InMemoryQueue) accepted() {
	metrics.RecordQueueEnqueue()
	q.Len()
}

func (q *InMemoryQueue) reject(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}
