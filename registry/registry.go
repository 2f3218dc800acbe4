package registry

import (
	"errors"
	"time"

	"github.com/vinayprograms/conductor/tasks"
)

// Common errors.
var (
	ErrNotFound    = errors.New("agent not found")
	ErrClosed      = errors.New("registry closed")
	ErrInvalidID   = errors.New("invalid agent ID")
	ErrDuplicateID = errors.New("duplicate agent ID")
	ErrNoIdleAgent = errors.New("no idle agent for type")
	ErrAgentBusy   = errors.New("agent already reserved")
	ErrAgentIdle   = errors.New("agent not reserved")
)

// State represents an agent's availability.
type State string

const (
	StateIdle State = "idle"
	StateBusy State = "busy"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// AgentInfo describes a registered agent.
type AgentInfo struct {
	// ID uniquely identifies the agent.
	ID string

	// Type is the capability class the agent executes.
	Type tasks.AgentType

	// Capabilities lists supported operation tags (e.g. "web-search",
	// "code-review").
	Capabilities []string

	// State is the agent's current availability.
	State State

	// CurrentTaskID references the task being executed, valid only while
	// busy. The agent holds this back-reference; a task never owns an agent.
	CurrentTaskID string

	// Metadata contains additional key-value pairs.
	Metadata map[string]string

	// RegisteredAt is when the agent joined the registry.
	RegisteredAt time.Time
}

// Clone creates a deep copy of the agent info.
func (a AgentInfo) Clone() AgentInfo {
	clone := a
	if a.Capabilities != nil {
		clone.Capabilities = make([]string, len(a.Capabilities))
		copy(clone.Capabilities, a.Capabilities)
	}
	if a.Metadata != nil {
		clone.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// EventType represents the type of registry event.
type EventType string

const (
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
)

// Event represents a change in the registry.
type Event struct {
	// Type indicates what happened.
	Type EventType

	// Agent contains the agent information.
	// For removal events, this is the last known state.
	Agent AgentInfo
}

// Registry provides agent registration, lookup, and reservation.
type Registry interface {
	// Register adds an agent. Returns ErrDuplicateID if the ID exists.
	Register(info AgentInfo) error

	// Deregister removes an agent from the registry.
	// Returns ErrNotFound if the agent doesn't exist.
	Deregister(id string) error

	// Get retrieves a specific agent by ID.
	Get(id string) (*AgentInfo, error)

	// List returns all agents, sorted by ID for stable output.
	List() ([]AgentInfo, error)

	// HasType reports whether any agent is registered for the given type.
	HasType(agentType tasks.AgentType) bool

	// FindIdle returns an idle agent of the given type, or ErrNoIdleAgent.
	FindIdle(agentType tasks.AgentType) (*AgentInfo, error)

	// Reserve atomically transitions an agent idle -> busy and records the
	// task it is executing. Returns ErrAgentBusy if already reserved.
	Reserve(id, taskID string) error

	// Release transitions an agent busy -> idle and clears the task
	// reference. Returns ErrAgentIdle if the agent was not reserved.
	Release(id string) error

	// Watch returns a channel of registry events. The channel is closed
	// when the registry closes. Multiple watchers are supported.
	Watch() (<-chan Event, error)

	// Close shuts down the registry.
	Close() error
}

// ValidateAgentInfo checks if agent info is valid.
func ValidateAgentInfo(info AgentInfo) error {
	if info.ID == "" {
		return ErrInvalidID
	}
	if info.Type == "" {
		return errors.New("agent type is required")
	}
	return nil
}

// HasCapability checks if an agent supports a specific operation tag.
func HasCapability(info AgentInfo, capability string) bool {
	for _, c := range info.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
