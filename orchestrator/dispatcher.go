package orchestrator

import (
	"context"
	"time"

	"github.com/vinayprograms/conductor/errors"
	"github.com/vinayprograms/conductor/tasks"
)

// placement is the outcome of one dispatch attempt.
type placement int

const (
	// placementDispatched means the task was handed to a worker.
	placementDispatched placement = iota

	// placementBlocked means the task must return to the queue.
	placementBlocked

	// placementDropped means the task left the queue for good
	// (terminal state reached or stale entry).
	placementDropped
)

// run is the dispatcher loop. It is the single scheduling authority and
// the only code that transitions a task into running.
func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)

	timer := time.NewTimer(o.pollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		dispatched := o.cycle(ctx)
		if ctx.Err() != nil {
			return
		}
		if dispatched {
			// Something moved; the queue head may be dispatchable now.
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(o.pollInterval)

		select {
		case <-ctx.Done():
			return
		case <-o.wake:
		case <-timer.C:
		}
	}
}

// cycle makes one pass over the queue in priority order. Tasks that
// cannot be placed (unmet dependencies, no idle agent, throttled) are
// collected and re-enqueued at the end of the pass so the loop never
// spins on a blocked head. Returns true if any task was dispatched.
func (o *Orchestrator) cycle(ctx context.Context) bool {
	var blocked []*tasks.Task
	dispatched := false

	// Bound the pass to the tasks queued when it started; re-enqueued
	// retries and new submissions wait for the next pass.
	for n := o.queue.Len(); n > 0; n-- {
		task, err := o.queue.Dequeue(ctx, 0)
		if err != nil || task == nil {
			break
		}

		switch o.place(ctx, task) {
		case placementDispatched:
			dispatched = true
		case placementBlocked:
			blocked = append(blocked, task)
		case placementDropped:
		}
	}

	for _, t := range blocked {
		if err := o.queue.Enqueue(t); err != nil {
			break
		}
	}
	return dispatched
}

// place attempts to dispatch one task: gate on dependencies, find and
// reserve an idle agent, then hand off to a worker goroutine.
func (o *Orchestrator) place(ctx context.Context, task *tasks.Task) placement {
	o.mu.Lock()

	// A cancelled retry can leave a terminal task in the queue briefly.
	if task.Status.IsTerminal() {
		o.mu.Unlock()
		return placementDropped
	}

	if depID, failed := o.failedDependencyLocked(task); failed {
		o.mu.Unlock()
		o.failTask(task, errors.DependencyFailed(task.ID, depID), task.RetryCount)
		o.log.DependencyFailed(task.ID, depID)
		return placementDropped
	}

	if !o.depsReadyLocked(task) {
		task.Status = tasks.StatusWaiting
		o.mu.Unlock()
		o.log.DispatchBlocked(task.ID, "waiting_on_dependency")
		return placementBlocked
	}

	// Eligible again; a waiting task regains pending without losing its
	// priority or submission order.
	task.Status = tasks.StatusPending

	if o.limiter != nil && !o.limiter.TryAcquire(dispatchResource) {
		o.mu.Unlock()
		o.log.DispatchBlocked(task.ID, "dispatch_rate")
		return placementBlocked
	}

	agent, err := o.registry.FindIdle(task.AgentType)
	if err != nil {
		o.mu.Unlock()
		o.log.DispatchBlocked(task.ID, "no_idle_agent")
		return placementBlocked
	}
	if err := o.registry.Reserve(agent.ID, task.ID); err != nil {
		o.mu.Unlock()
		o.log.DispatchBlocked(task.ID, "agent_reserved")
		return placementBlocked
	}

	now := time.Now()
	task.Status = tasks.StatusRunning
	task.StartedAt = &now
	cap := o.caps[agent.ID]
	deps := o.gatherLocked(task)
	o.mu.Unlock()

	o.log.TaskDispatched(task.ID, agent.ID, task.RetryCount+1)

	o.wg.Add(1)
	go o.execute(ctx, task, agent.ID, cap, deps)
	return placementDispatched
}
