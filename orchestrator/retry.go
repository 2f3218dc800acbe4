package orchestrator

import (
	"context"
	"time"

	"github.com/vinayprograms/conductor/errors"
	"github.com/vinayprograms/conductor/results"
	"github.com/vinayprograms/conductor/tasks"
)

// handleFailure decides the fate of a failed attempt: schedule another
// run with escalated priority, or fail the task terminally. Permanent
// errors skip the remaining retry budget.
func (o *Orchestrator) handleFailure(task *tasks.Task, agentID string, execErr error) {
	engErr := errors.Wrap(execErr, "execution attempt failed",
		errors.WithTaskID(task.ID), errors.WithAgentID(agentID))

	o.mu.Lock()
	if task.Status != tasks.StatusRunning {
		o.mu.Unlock()
		return
	}

	if task.RetryCount < o.maxRetries && !errors.IsPermanent(engErr) {
		task.RetryCount++
		task.Priority = task.Priority.Escalated()
		task.Status = tasks.StatusPending
		task.SetMeta("last_error", engErr.Error())

		// Backoff grows with the attempt number. CreatedAt is kept so a
		// retried task never jumps equal-priority tasks that have waited
		// longer.
		attempt := task.RetryCount
		delay := o.retryDelay * time.Duration(attempt)
		o.timers[task.ID] = time.AfterFunc(delay, func() {
			o.requeue(task.ID)
		})
		o.mu.Unlock()

		o.log.RetryScheduled(task.ID, attempt, delay, engErr)
		return
	}

	attempts := task.RetryCount + 1
	o.mu.Unlock()

	code := errors.Code(engErr)
	final := engErr
	if !errors.IsPermanent(engErr) {
		final = errors.RetriesExhausted(task.ID, attempts, engErr)
	}
	o.failTaskWithCode(task, final, code, attempts)
}

// requeue puts a task back in the queue after its backoff elapses.
func (o *Orchestrator) requeue(taskID string) {
	o.mu.Lock()
	delete(o.timers, taskID)
	task, ok := o.tasks[taskID]
	if !ok || !task.Status.Queued() {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	// Enqueue fails only when the queue closed during shutdown.
	if err := o.queue.Enqueue(task); err != nil {
		return
	}
	o.signalWake()
}

// failTask records a terminal failure, deriving the handler code from
// the error itself.
func (o *Orchestrator) failTask(task *tasks.Task, engErr *errors.Error, attempts int) {
	o.failTaskWithCode(task, engErr, errors.Code(engErr), attempts)
}

// failTaskWithCode records a terminal failure and notifies the caller
// exactly once. The code selects the registered error handler; for
// exhausted retries it is the last attempt's code, not the wrapper's.
func (o *Orchestrator) failTaskWithCode(task *tasks.Task, engErr *errors.Error, code errors.ErrorCode, attempts int) {
	o.mu.Lock()
	if task.Status.IsTerminal() {
		o.mu.Unlock()
		return
	}
	now := time.Now()
	task.Status = tasks.StatusFailed
	task.CompletedAt = &now
	task.SetMeta("error", engErr.Error())
	task.SetMeta("error_code", string(code))
	cb := o.takeCallbackLocked(task.ID)
	handler := o.handlers[code]
	snapshot := task.Clone()
	o.mu.Unlock()

	o.publisher.Publish(context.Background(), task.ID, results.Result{
		TaskID:    task.ID,
		AgentID:   engErr.AgentID(),
		AgentType: task.AgentType,
		Status:    results.StatusFailed,
		Error:     engErr.Error(),
		Attempts:  attempts,
		Metadata:  engErr.Metadata(),
		CreatedAt: snapshot.CreatedAt,
		UpdatedAt: now,
	})

	o.log.TaskFailed(task.ID, attempts, engErr)

	if handler != nil {
		handler(task.ID, engErr)
	}
	if cb != nil {
		cb(snapshot)
	}
}
