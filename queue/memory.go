package queue

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/conductor/tasks"
)

// MemoryQueue is the in-memory implementation of TaskQueue.
// Safe for concurrent use; a single dispatcher and many producers is the
// expected access pattern.
type MemoryQueue struct {
	mu     sync.Mutex
	items  taskHeap
	index  map[string]*item // task ID -> heap entry
	signal chan struct{}
	closed atomic.Bool
}

type item struct {
	task *tasks.Task
	pos  int
}

// NewMemoryQueue creates a new in-memory priority queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		index:  make(map[string]*item),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue inserts a task into the queue.
func (q *MemoryQueue) Enqueue(task *tasks.Task) error {
	if q.closed.Load() {
		return ErrClosed
	}

	q.mu.Lock()
	if _, exists := q.index[task.ID]; exists {
		q.mu.Unlock()
		return ErrDuplicate
	}

	it := &item{task: task}
	q.index[task.ID] = it
	heap.Push(&q.items, it)
	q.mu.Unlock()

	// Wake one waiting Dequeue caller.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return nil
}

// Dequeue removes and returns the best candidate, waiting up to the given
// interval when empty.
func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (*tasks.Task, error) {
	if t, err := q.pop(); err != nil || t != nil {
		return t, err
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrEmpty
		case <-q.signal:
			if t, err := q.pop(); err != nil || t != nil {
				return t, err
			}
			// Signal consumed by a concurrent caller; keep waiting.
		}
	}
}

// pop removes the head of the heap, returning (nil, nil) when empty.
func (q *MemoryQueue) pop() (*tasks.Task, error) {
	if q.closed.Load() {
		return nil, ErrClosed
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return nil, nil
	}

	it := heap.Pop(&q.items).(*item)
	delete(q.index, it.task.ID)
	return it.task, nil
}

// Remove takes a queued task out of the queue by ID.
func (q *MemoryQueue) Remove(taskID string) (*tasks.Task, error) {
	if q.closed.Load() {
		return nil, ErrClosed
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	it, exists := q.index[taskID]
	if !exists {
		return nil, ErrNotQueued
	}

	heap.Remove(&q.items, it.pos)
	delete(q.index, taskID)
	return it.task, nil
}

// Len returns the number of queued tasks.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close shuts down the queue.
func (q *MemoryQueue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}

	q.mu.Lock()
	q.items = nil
	q.index = nil
	q.mu.Unlock()

	// Wake waiters so they observe the closed state.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return nil
}

// taskHeap orders items by tasks.Task.Before.
type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].task.Before(h[j].task)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}

func (h *taskHeap) Push(x interface{}) {
	it := x.(*item)
	it.pos = len(*h)
	*h = append(*h, it)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Ensure MemoryQueue implements TaskQueue.
var _ TaskQueue = (*MemoryQueue)(nil)
