// Package queue provides the bounded FIFO queues that sit between the
// inbound message router and the actuator tasks.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrQueueFull is returned by Enqueue when the queue is at capacity
	ErrQueueFull = errors.New("queue full")

	// ErrTimedOut is returned by Dequeue when no entry arrived within the timeout
	ErrTimedOut = errors.New("dequeue timed out")
)

// Policy decides what Enqueue does when the queue is full.
type Policy struct {
	// BlockFor is how long Enqueue waits for space. Zero drops the newest entry immediately.
	BlockFor time.Duration
}

// DropNewest rejects the incoming entry when the queue is full.
func DropNewest() Policy { return Policy{} }

// BlockWithTimeout waits up to d for space before rejecting the incoming entry.
func BlockWithTimeout(d time.Duration) Policy { return Policy{BlockFor: d} }

// Stats counts queue traffic since creation.
type Stats struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Length   int    `json:"length"`
	Enqueued uint64 `json:"enqueued"`
	Dropped  uint64 `json:"dropped"`
	Dequeued uint64 `json:"dequeued"`
}

// Queue is a bounded, multi-producer single-consumer FIFO of values.
// Entries are copied in and copied out; T should not contain references the
// producer keeps using after Enqueue.
type Queue[T any] struct {
	name   string
	ch     chan T
	policy Policy

	enqueued atomic.Uint64
	dropped  atomic.Uint64
	dequeued atomic.Uint64
}

// New creates a queue holding at most capacity entries.
// Capacity values below 1 are raised to 1.
func New[T any](name string, capacity int, policy Policy) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		name:   name,
		ch:     make(chan T, capacity),
		policy: policy,
	}
}

// Name returns the queue's diagnostic name.
func (q *Queue[T]) Name() string {
	return q.name
}

// Enqueue appends entry to the tail of the queue.
// When the queue is full the entry is rejected with ErrQueueFull, either
// immediately or after the policy's bounded wait. Existing entries are never touched.
func (q *Queue[T]) Enqueue(entry T) error {
	select {
	case q.ch <- entry:
		q.enqueued.Add(1)
		return nil
	default:
	}

	if q.policy.BlockFor <= 0 {
		q.dropped.Add(1)
		return ErrQueueFull
	}

	timer := time.NewTimer(q.policy.BlockFor)
	defer timer.Stop()

	select {
	case q.ch <- entry:
		q.enqueued.Add(1)
		return nil
	case <-timer.C:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// TryDequeue removes the head entry if one is available.
func (q *Queue[T]) TryDequeue() (T, bool) {
	select {
	case entry := <-q.ch:
		q.dequeued.Add(1)
		return entry, true
	default:
		var zero T
		return zero, false
	}
}

// Dequeue blocks until an entry is available, the timeout elapses, or ctx is done.
// A timeout of zero or less waits until ctx is done.
func (q *Queue[T]) Dequeue(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case entry := <-q.ch:
		q.dequeued.Add(1)
		return entry, nil
	case <-timeoutC:
		return zero, ErrTimedOut
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Name:     q.name,
		Capacity: cap(q.ch),
		Length:   len(q.ch),
		Enqueued: q.enqueued.Load(),
		Dropped:  q.dropped.Load(),
		Dequeued: q.dequeued.Load(),
	}
}
