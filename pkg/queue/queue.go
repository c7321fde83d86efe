// Package queue provides the FIFO containers used by the rolling batch
// engine for pending work items, produced results and failed items.
package queue

import (
	"errors"
)

// ErrEmpty is returned by Next when the queue holds no elements.
var ErrEmpty = errors.New("queue: no next element")

// Queue is an ordered container. Elements are dequeued in insertion order.
type Queue[T any] interface {
	// Add appends an element to the tail.
	Add(item T)

	// Next removes and returns the head element.
	// Returns ErrEmpty if the queue is empty.
	Next() (T, error)

	// Count returns the number of queued elements.
	Count() int

	// IsEmpty reports whether Count() == 0.
	IsEmpty() bool

	// Clear discards all queued elements.
	Clear()
}

// FIFO is an in-memory Queue backed by a growable ring buffer.
// It is not safe for concurrent use.
type FIFO[T any] struct {
	buf  []T
	head int
	size int
}

// NewFIFO creates an empty FIFO queue.
func NewFIFO[T any]() *FIFO[T] {
	return &FIFO[T]{}
}

// Add appends item to the tail of the queue.
func (q *FIFO[T]) Add(item T) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.size)%len(q.buf)] = item
	q.size++
}

// Next removes and returns the head of the queue.
func (q *FIFO[T]) Next() (T, error) {
	var zero T
	if q.size == 0 {
		return zero, ErrEmpty
	}

	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return item, nil
}

// Count returns the number of queued elements.
func (q *FIFO[T]) Count() int {
	return q.size
}

// IsEmpty reports whether the queue holds no elements.
func (q *FIFO[T]) IsEmpty() bool {
	return q.size == 0
}

// Clear discards all queued elements.
func (q *FIFO[T]) Clear() {
	q.buf = nil
	q.head = 0
	q.size = 0
}

func (q *FIFO[T]) grow() {
	capacity := len(q.buf) * 2
	if capacity == 0 {
		capacity = 8
	}

	buf := make([]T, capacity)
	for i := 0; i < q.size; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}

// Null is a Queue that discards everything added to it.
// Use it as a result or failure queue when the output is not needed.
type Null[T any] struct{}

// NewNull creates a discarding queue.
func NewNull[T any]() Null[T] {
	return Null[T]{}
}

// Add discards item.
func (Null[T]) Add(T) {}

// Next always returns ErrEmpty.
func (Null[T]) Next() (T, error) {
	var zero T
	return zero, ErrEmpty
}

// Count always returns 0.
func (Null[T]) Count() int { return 0 }

// IsEmpty always returns true.
func (Null[T]) IsEmpty() bool { return true }

// Clear is a no-op.
func (Null[T]) Clear() {}
