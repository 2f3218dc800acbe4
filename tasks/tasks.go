package tasks

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors.
var (
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTask indicates the task is invalid (missing required fields).
	ErrInvalidTask = errors.New("invalid task")

	// ErrUnknownAgentType indicates no registered agent can execute the task.
	ErrUnknownAgentType = errors.New("unknown agent type")

	// ErrTaskTerminal indicates the task has already reached a terminal state.
	ErrTaskTerminal = errors.New("task already terminal")

	// ErrTaskNotTerminal indicates the operation requires a terminal task.
	ErrTaskNotTerminal = errors.New("task not terminal")

	// ErrNotCancelable indicates the task is running or terminal and cannot
	// be cancelled by the core.
	ErrNotCancelable = errors.New("task not cancelable")
)

// AgentType tags the capability class that can execute a task.
// The engine ships a known set but accepts any non-empty custom tag.
type AgentType string

// Known agent types.
const (
	TypeResearch AgentType = "research"
	TypeCoding   AgentType = "coding"
	TypeSecurity AgentType = "security"
	TypeAnalysis AgentType = "analysis"
)

// String returns the string representation of the agent type.
func (t AgentType) String() string {
	return string(t)
}

// Known returns true if the type is one of the built-in tags.
func (t AgentType) Known() bool {
	switch t {
	case TypeResearch, TypeCoding, TypeSecurity, TypeAnalysis:
		return true
	default:
		return false
	}
}

// Priority orders tasks in the queue. Lower value means higher urgency.
type Priority int

const (
	// PriorityCritical is reserved for caller-declared urgent tasks.
	// Retry escalation never promotes a task to this level.
	PriorityCritical Priority = iota

	// PriorityHigh is the ceiling for retry escalation.
	PriorityHigh

	// PriorityNormal is the default for submitted tasks.
	PriorityNormal

	// PriorityLow is for background work.
	PriorityLow
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

// Escalated returns the priority a task is bumped to on retry.
// Normal and low become high; critical and high are unchanged.
func (p Priority) Escalated() Priority {
	if p > PriorityHigh {
		return PriorityHigh
	}
	return p
}

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is queued and eligible for dispatch.
	StatusPending TaskStatus = "pending"

	// StatusWaiting indicates the task is queued but gated on unfinished
	// dependencies.
	StatusWaiting TaskStatus = "waiting_on_dependency"

	// StatusRunning indicates an agent is executing the task.
	StatusRunning TaskStatus = "running"

	// StatusCompleted indicates the task finished successfully.
	StatusCompleted TaskStatus = "completed"

	// StatusFailed indicates the task failed permanently (retries exhausted,
	// dependency failure, or cancellation).
	StatusFailed TaskStatus = "failed"
)

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Queued returns true if the status keeps the task in the priority queue.
func (s TaskStatus) Queued() bool {
	return s == StatusPending || s == StatusWaiting
}

// Task represents one unit of work submitted for execution.
type Task struct {
	// ID is the unique identifier, assigned at submission, never reused.
	ID string

	// AgentType selects the capability class that can execute the task.
	AgentType AgentType

	// Instruction is the raw instruction payload. Opaque to the engine.
	Instruction string

	// Priority orders the task against others in the queue.
	Priority Priority

	// Context is caller-supplied key/value data merged into the enriched
	// instruction at execution time.
	Context map[string]string

	// Dependencies lists task IDs that must complete before this task
	// becomes eligible.
	Dependencies []string

	// Status is the current lifecycle state.
	Status TaskStatus

	// Result holds the text output, set only on completion.
	Result string

	// RetryCount is the number of failed attempts so far.
	RetryCount int

	// CreatedAt is the submission time, used as the FIFO tie-break within a
	// priority band. Retries keep the original value so a retried task never
	// jumps equal-priority tasks that have waited longer.
	CreatedAt time.Time

	// Sequence is a monotonic submission counter breaking CreatedAt ties.
	Sequence uint64

	// StartedAt is when the task last entered running state.
	StartedAt *time.Time

	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time

	// Metadata carries diagnostic annotations such as the last error.
	Metadata map[string]string
}

// NewID generates a unique task identifier.
func NewID() string {
	return uuid.New().String()
}

// Validate checks that required fields are present.
func (t *Task) Validate() error {
	if t.AgentType == "" || t.Instruction == "" {
		return ErrInvalidTask
	}
	if !t.Priority.Valid() {
		return ErrInvalidTask
	}
	return nil
}

// Clone creates a deep copy of the task.
func (t *Task) Clone() *Task {
	clone := &Task{
		ID:          t.ID,
		AgentType:   t.AgentType,
		Instruction: t.Instruction,
		Priority:    t.Priority,
		Status:      t.Status,
		Result:      t.Result,
		RetryCount:  t.RetryCount,
		CreatedAt:   t.CreatedAt,
		Sequence:    t.Sequence,
	}

	if t.Context != nil {
		clone.Context = make(map[string]string, len(t.Context))
		for k, v := range t.Context {
			clone.Context[k] = v
		}
	}

	if t.Dependencies != nil {
		clone.Dependencies = make([]string, len(t.Dependencies))
		copy(clone.Dependencies, t.Dependencies)
	}

	if t.Metadata != nil {
		clone.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}

	if t.StartedAt != nil {
		started := *t.StartedAt
		clone.StartedAt = &started
	}

	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		clone.CompletedAt = &completed
	}

	return clone
}

// SetMeta records a metadata annotation, allocating the map on first use.
func (t *Task) SetMeta(key, value string) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]string)
	}
	t.Metadata[key] = value
}

// Before reports whether t should be dispatched ahead of other.
// Ordering is priority first, then CreatedAt, then submission sequence.
// The sequence tie-break makes FIFO fairness within a band explicit rather
// than an accident of map iteration.
func (t *Task) Before(other *Task) bool {
	if t.Priority != other.Priority {
		return t.Priority < other.Priority
	}
	if !t.CreatedAt.Equal(other.CreatedAt) {
		return t.CreatedAt.Before(other.CreatedAt)
	}
	return t.Sequence < other.Sequence
}
