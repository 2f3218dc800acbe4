package orchestrator

import (
	"github.com/vinayprograms/conductor/tasks"
)

// depsReadyLocked reports whether every dependency has completed.
// Caller holds o.mu.
func (o *Orchestrator) depsReadyLocked(task *tasks.Task) bool {
	for _, depID := range task.Dependencies {
		dep, ok := o.tasks[depID]
		if !ok || dep.Status != tasks.StatusCompleted {
			return false
		}
	}
	return true
}

// failedDependencyLocked returns the first terminally failed dependency,
// if any. A task gated on a failed prerequisite can never become ready,
// so the dispatcher fails it instead of re-queueing forever.
// Caller holds o.mu.
func (o *Orchestrator) failedDependencyLocked(task *tasks.Task) (string, bool) {
	for _, depID := range task.Dependencies {
		if dep, ok := o.tasks[depID]; ok && dep.Status == tasks.StatusFailed {
			return depID, true
		}
	}
	return "", false
}

// gatherLocked collects the results of completed dependencies, keyed by
// dependency ID, for injection into the enriched instruction.
// Caller holds o.mu.
func (o *Orchestrator) gatherLocked(task *tasks.Task) map[string]string {
	if len(task.Dependencies) == 0 {
		return nil
	}
	out := make(map[string]string, len(task.Dependencies))
	for _, depID := range task.Dependencies {
		if dep, ok := o.tasks[depID]; ok && dep.Status == tasks.StatusCompleted {
			out[depID] = dep.Result
		}
	}
	return out
}
