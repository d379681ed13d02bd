package analysis

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull is returned when the queue cannot accept more work.
var ErrQueueFull = errors.New("analysis queue full")

// Queue accepts entry ids for deferred feature analysis. Enqueue must not
// block on downstream consumers.
type Queue interface {
	Enqueue(ctx context.Context, entryID string) error
}

// MemoryQueue is a bounded in-process Queue. Jobs survive only as long as
// the process; a broker-backed implementation can replace it behind the
// same interface.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []string
	cap  int
}

// NewMemoryQueue constructs a queue holding at most capacity pending ids.
// A capacity <= 0 defaults to 1024.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{cap: capacity}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, entryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) >= q.cap {
		return ErrQueueFull
	}
	q.jobs = append(q.jobs, entryID)
	return nil
}

// Drain removes and returns all pending ids in enqueue order.
func (q *MemoryQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	return jobs
}

// Len reports the number of pending ids.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
