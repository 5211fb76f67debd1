package queue

import (
	"sync"
)

// Queue is an unbounded FIFO of formatted records, safe for many producers
// (connection goroutines) and one consumer (the writer). Records are never
// dropped: a client that got an OK must find its record in the file, so
// backpressure is bounded only by memory.
type Queue struct {
	mu    sync.Mutex
	items [][]byte

	// Metrics
	pushed uint64
	popped uint64
}

func New() *Queue {
	return &Queue{}
}

// Push appends an item to the tail.
func (q *Queue) Push(item []byte) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.pushed++
	q.mu.Unlock()
}

// Pop removes and returns the head item, or nil if the queue is empty. The
// consumer polls; it owns its own wait cadence so it can interleave stop-flag
// and rotation checks.
func (q *Queue) Pop() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	q.popped++
	return item
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pushed returns the total number of items ever enqueued.
func (q *Queue) Pushed() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}
