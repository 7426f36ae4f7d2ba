package queue

import (
	"context"
	"sync"
)

// MemoryQueue keeps published tasks in memory. The local server drains it
// into the worker; tests inspect it.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks []Task
	fail  error
}

// NewMemoryQueue creates an empty queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Publish implements Publisher
func (q *MemoryQueue) Publish(ctx context.Context, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return q.fail
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// Drain removes and returns every queued task
func (q *MemoryQueue) Drain() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := q.tasks
	q.tasks = nil
	return tasks
}

// Len returns the number of queued tasks
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// FailWith makes later publishes return err; nil restores them
func (q *MemoryQueue) FailWith(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fail = err
}
