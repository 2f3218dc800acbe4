package queue

import (
	"context"
	"errors"
	"time"

	"github.com/vinayprograms/conductor/tasks"
)

// Common errors.
var (
	// ErrEmpty indicates no task became available within the wait interval.
	ErrEmpty = errors.New("queue empty")

	// ErrClosed indicates the queue has been closed.
	ErrClosed = errors.New("queue closed")

	// ErrNotQueued indicates the task is not currently in the queue.
	ErrNotQueued = errors.New("task not queued")

	// ErrDuplicate indicates the task is already in the queue.
	ErrDuplicate = errors.New("task already queued")
)

// TaskQueue yields the highest-priority, oldest-eligible task first.
type TaskQueue interface {
	// Enqueue inserts a task. Returns ErrDuplicate if the task ID is
	// already queued.
	Enqueue(task *tasks.Task) error

	// Dequeue removes and returns the best candidate. If the queue is
	// empty it waits up to the given interval, then returns ErrEmpty.
	// Context cancellation returns the context error immediately.
	Dequeue(ctx context.Context, wait time.Duration) (*tasks.Task, error)

	// Remove takes a queued task out of the queue by ID, for cancellation.
	// Returns ErrNotQueued if the task is not present.
	Remove(taskID string) (*tasks.Task, error)

	// Len returns the number of queued tasks.
	Len() int

	// Close shuts down the queue and wakes any waiting Dequeue callers.
	Close() error
}
