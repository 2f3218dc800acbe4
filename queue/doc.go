// Package queue provides the priority task queue feeding the dispatcher.
//
// Ordering is strict: priority band first (critical before high before normal
// before low), then submission time, then a monotonic submission sequence.
// FIFO fairness within a band is an explicit, testable guarantee.
//
// Dequeue waits up to a bounded interval when the queue is empty and then
// returns ErrEmpty, so the dispatcher can service cancellation and shutdown
// instead of blocking forever. A task re-enqueued after a dependency check
// keeps its original priority and creation time; it is never pushed to the
// back of its band.
package queue
