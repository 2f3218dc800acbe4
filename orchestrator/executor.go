package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/vinayprograms/conductor/errors"
	"github.com/vinayprograms/conductor/results"
	"github.com/vinayprograms/conductor/tasks"
)

// execute runs one attempt of a task on a worker goroutine. The agent is
// released when the attempt ends, success or failure.
func (o *Orchestrator) execute(ctx context.Context, task *tasks.Task, agentID string, cap Capability, deps map[string]string) {
	defer o.wg.Done()

	start := time.Now()
	instruction := o.enrich(task, deps)
	output, err := o.invoke(ctx, cap, agentID, instruction)

	o.registry.Release(agentID)

	if err != nil {
		o.handleFailure(task, agentID, err)
	} else {
		o.completeTask(task, agentID, output, time.Since(start))
	}

	// A freed agent or a completed dependency can unblock queued tasks.
	o.signalWake()
}

// invoke calls the capability with panic recovery. A panicking
// capability fails the attempt instead of crashing the engine.
func (o *Orchestrator) invoke(ctx context.Context, cap Capability, agentID, instruction string) (output string, err error) {
	if cap == nil {
		return "", errors.Internal("agent has no capability bound", errors.WithAgentID(agentID))
	}

	if o.execTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.execTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.RecoverPanic(r)
		}
	}()

	return cap.Execute(ctx, instruction)
}

// enrich builds the instruction an agent actually receives: the raw
// instruction, then the task's own context, then the shared scratchpad,
// then dependency results. Sections are sorted by key so the same state
// always renders the same text.
func (o *Orchestrator) enrich(task *tasks.Task, deps map[string]string) string {
	var b strings.Builder
	b.WriteString(task.Instruction)

	writeSection(&b, "Context", task.Context)

	if shared, err := o.store.Snapshot(); err == nil {
		writeSection(&b, "Shared context", shared)
	}

	writeSection(&b, "Dependency results", deps)

	return b.String()
}

// writeSection appends a titled key/value block, skipping empty maps.
func writeSection(b *strings.Builder, title string, kv map[string]string) {
	if len(kv) == 0 {
		return
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("\n\n")
	b.WriteString(title)
	b.WriteString(":")
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(kv[k])
	}
}

// completeTask records a successful terminal state and notifies the
// caller exactly once.
func (o *Orchestrator) completeTask(task *tasks.Task, agentID string, output string, elapsed time.Duration) {
	o.mu.Lock()
	if task.Status != tasks.StatusRunning {
		o.mu.Unlock()
		return
	}
	now := time.Now()
	task.Status = tasks.StatusCompleted
	task.Result = output
	task.CompletedAt = &now
	attempts := task.RetryCount + 1
	cb := o.takeCallbackLocked(task.ID)
	snapshot := task.Clone()
	o.mu.Unlock()

	o.publisher.Publish(context.Background(), task.ID, results.Result{
		TaskID:    task.ID,
		AgentID:   agentID,
		AgentType: task.AgentType,
		Status:    results.StatusSuccess,
		Output:    output,
		Attempts:  attempts,
		CreatedAt: snapshot.CreatedAt,
		UpdatedAt: now,
	})

	o.log.TaskCompleted(task.ID, agentID, elapsed)

	if cb != nil {
		cb(snapshot)
	}
}

// takeCallbackLocked returns the task's callback if it has not fired
// yet, marking it consumed. Guarantees the exactly-once terminal
// notification. Caller holds o.mu.
func (o *Orchestrator) takeCallbackLocked(taskID string) Callback {
	if o.notified[taskID] {
		return nil
	}
	o.notified[taskID] = true
	return o.callbacks[taskID]
}
