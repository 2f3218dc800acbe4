package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/vinayprograms/conductor/tasks"
)

// MemoryRegistry is the in-memory implementation of Registry.
type MemoryRegistry struct {
	mu       sync.RWMutex
	agents   map[string]AgentInfo
	watchers []chan Event
	closed   bool
}

// NewMemoryRegistry creates a new in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		agents: make(map[string]AgentInfo),
	}
}

// Register adds an agent to the registry.
func (r *MemoryRegistry) Register(info AgentInfo) error {
	if err := ValidateAgentInfo(info); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if _, exists := r.agents[info.ID]; exists {
		return ErrDuplicateID
	}

	info.State = StateIdle
	info.CurrentTaskID = ""
	info.RegisteredAt = time.Now()
	r.agents[info.ID] = info

	r.notifyWatchers(Event{Type: EventAdded, Agent: info.Clone()})
	return nil
}

// Deregister removes an agent from the registry.
func (r *MemoryRegistry) Deregister(id string) error {
	if id == "" {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	agent, exists := r.agents[id]
	if !exists {
		return ErrNotFound
	}

	delete(r.agents, id)
	r.notifyWatchers(Event{Type: EventRemoved, Agent: agent.Clone()})
	return nil
}

// Get retrieves a specific agent by ID.
func (r *MemoryRegistry) Get(id string) (*AgentInfo, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	agent, exists := r.agents[id]
	if !exists {
		return nil, ErrNotFound
	}

	clone := agent.Clone()
	return &clone, nil
}

// List returns all agents sorted by ID.
func (r *MemoryRegistry) List() ([]AgentInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	result := make([]AgentInfo, 0, len(r.agents))
	for _, agent := range r.agents {
		result = append(result, agent.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// HasType reports whether any agent is registered for the given type.
func (r *MemoryRegistry) HasType(agentType tasks.AgentType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, agent := range r.agents {
		if agent.Type == agentType {
			return true
		}
	}
	return false
}

// FindIdle returns an idle agent of the given type.
// Agents are scanned in ID order so selection is deterministic.
func (r *MemoryRegistry) FindIdle(agentType tasks.AgentType) (*AgentInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		agent := r.agents[id]
		if agent.Type == agentType && agent.State == StateIdle {
			clone := agent.Clone()
			return &clone, nil
		}
	}

	return nil, ErrNoIdleAgent
}

// Reserve atomically transitions an agent idle -> busy.
func (r *MemoryRegistry) Reserve(id, taskID string) error {
	if id == "" {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	agent, exists := r.agents[id]
	if !exists {
		return ErrNotFound
	}

	if agent.State != StateIdle {
		return ErrAgentBusy
	}

	agent.State = StateBusy
	agent.CurrentTaskID = taskID
	r.agents[id] = agent

	r.notifyWatchers(Event{Type: EventUpdated, Agent: agent.Clone()})
	return nil
}

// Release transitions an agent busy -> idle.
func (r *MemoryRegistry) Release(id string) error {
	if id == "" {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	agent, exists := r.agents[id]
	if !exists {
		return ErrNotFound
	}

	if agent.State != StateBusy {
		return ErrAgentIdle
	}

	agent.State = StateIdle
	agent.CurrentTaskID = ""
	r.agents[id] = agent

	r.notifyWatchers(Event{Type: EventUpdated, Agent: agent.Clone()})
	return nil
}

// Watch returns a channel of registry events.
func (r *MemoryRegistry) Watch() (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	ch := make(chan Event, 64)
	r.watchers = append(r.watchers, ch)
	return ch, nil
}

// Close shuts down the registry.
func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	for _, ch := range r.watchers {
		close(ch)
	}
	r.watchers = nil

	return nil
}

// notifyWatchers sends an event to all watchers.
// Must be called with the lock held.
func (r *MemoryRegistry) notifyWatchers(event Event) {
	for _, ch := range r.watchers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

// Ensure MemoryRegistry implements Registry.
var _ Registry = (*MemoryRegistry)(nil)
