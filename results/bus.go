package results

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/conductor/bus"
)

// BusPublisherConfig configures the bus-backed result publisher.
type BusPublisherConfig struct {
	// SubjectPrefix is the prefix for per-task result subjects.
	// Default: "results"
	SubjectPrefix string

	// TerminalSubject is the aggregate subject carrying every terminal
	// result. Followers like the recall archive subscribe here.
	// Default: "results.terminal"
	TerminalSubject string

	// BufferSize for subscription channels.
	// Default: 16
	BufferSize int
}

// DefaultBusPublisherConfig returns configuration with sensible defaults.
func DefaultBusPublisherConfig() BusPublisherConfig {
	return BusPublisherConfig{
		SubjectPrefix:   "results",
		TerminalSubject: "results.terminal",
		BufferSize:      16,
	}
}

// BusPublisher implements ResultPublisher backed by a message bus.
// Results are stored in memory; every update is also broadcast on the
// task's subject, and terminal results on the aggregate subject.
type BusPublisher struct {
	bus    bus.MessageBus
	config BusPublisherConfig

	mu      sync.RWMutex
	results map[string]*Result
	subs    map[string][]*busResultSub
	closed  atomic.Bool
}

type busResultSub struct {
	taskID string
	ch     chan *Result
	busSub bus.Subscription
	closed atomic.Bool
	pub    *BusPublisher
	stopCh chan struct{}
}

// NewBusPublisher creates a new bus-backed result publisher.
func NewBusPublisher(mb bus.MessageBus, cfg BusPublisherConfig) *BusPublisher {
	def := DefaultBusPublisherConfig()
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = def.SubjectPrefix
	}
	if cfg.TerminalSubject == "" {
		cfg.TerminalSubject = def.TerminalSubject
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	return &BusPublisher{
		bus:     mb,
		config:  cfg,
		results: make(map[string]*Result),
		subs:    make(map[string][]*busResultSub),
	}
}

// resultSubject returns the bus subject for a task.
func (p *BusPublisher) resultSubject(taskID string) string {
	return p.config.SubjectPrefix + "." + taskID
}

// Publish stores a task result and broadcasts it over the bus.
func (p *BusPublisher) Publish(ctx context.Context, taskID string, result Result) error {
	if p.closed.Load() {
		return ErrClosed
	}

	if err := ValidateTaskID(taskID); err != nil {
		return err
	}

	// Ensure taskID in result matches
	result.TaskID = taskID

	if !result.Status.Valid() {
		return ErrInvalidStatus
	}

	now := time.Now()

	p.mu.Lock()
	existing, exists := p.results[taskID]
	if exists {
		result.CreatedAt = existing.CreatedAt
	} else {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	stored := result.Clone()
	p.results[taskID] = stored
	p.mu.Unlock()

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	// Local storage already succeeded; bus delivery is best-effort.
	p.bus.Publish(p.resultSubject(taskID), data)
	if stored.Status.IsTerminal() {
		p.bus.Publish(p.config.TerminalSubject, data)
	}

	// Relay goroutines close themselves when they see the terminal
	// result, so the final message is always delivered.

	return nil
}

// Get retrieves a result by task ID.
func (p *BusPublisher) Get(ctx context.Context, taskID string) (*Result, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}

	p.mu.RLock()
	result, exists := p.results[taskID]
	p.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	return result.Clone(), nil
}

// Subscribe returns a channel that receives updates for a task.
// Updates come from the message bus.
func (p *BusPublisher) Subscribe(taskID string) (<-chan *Result, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}

	subject := p.resultSubject(taskID)
	busSub, err := p.bus.Subscribe(subject)
	if err != nil {
		return nil, err
	}

	sub := &busResultSub{
		taskID: taskID,
		ch:     make(chan *Result, p.config.BufferSize),
		busSub: busSub,
		pub:    p,
		stopCh: make(chan struct{}),
	}

	p.mu.Lock()
	p.subs[taskID] = append(p.subs[taskID], sub)

	var existingResult *Result
	if existing, exists := p.results[taskID]; exists {
		existingResult = existing.Clone()
	}
	p.mu.Unlock()

	if existingResult != nil {
		select {
		case sub.ch <- existingResult:
		default:
		}

		if existingResult.Status.IsTerminal() {
			sub.closed.Store(true)
			busSub.Unsubscribe()
			close(sub.ch)
			return sub.ch, nil
		}
	}

	go sub.relay()

	return sub.ch, nil
}

// relay forwards bus messages to the subscription channel.
func (s *busResultSub) relay() {
	defer func() {
		if !s.closed.Swap(true) {
			close(s.ch)
		}
	}()

	for {
		select {
		case <-s.stopCh:
			return
		case msg, ok := <-s.busSub.Messages():
			if !ok {
				return
			}

			var result Result
			if err := json.Unmarshal(msg.Data, &result); err != nil {
				continue // Skip malformed messages
			}

			if !s.closed.Load() {
				select {
				case s.ch <- result.Clone():
				default:
					// Buffer full, drop update
				}
			}

			if result.Status.IsTerminal() {
				return
			}
		}
	}
}

// List returns results matching the filter criteria.
func (p *BusPublisher) List(filter ResultFilter) ([]*Result, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var results []*Result
	for _, r := range p.results {
		if filter.Matches(r) {
			results = append(results, r.Clone())
			if filter.Limit > 0 && len(results) >= filter.Limit {
				break
			}
		}
	}

	return results, nil
}

// Delete removes a result by task ID.
func (p *BusPublisher) Delete(ctx context.Context, taskID string) error {
	if p.closed.Load() {
		return ErrClosed
	}

	if err := ValidateTaskID(taskID); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.results[taskID]; !exists {
		return ErrNotFound
	}

	delete(p.results, taskID)
	p.closeSubscriptionsLocked(taskID)

	return nil
}

// Close shuts down the publisher.
func (p *BusPublisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for taskID := range p.subs {
		p.closeSubscriptionsLocked(taskID)
	}

	p.results = nil
	p.subs = nil

	return nil
}

// closeSubscriptionsLocked closes subscriptions while holding the lock.
func (p *BusPublisher) closeSubscriptionsLocked(taskID string) {
	subs := p.subs[taskID]
	for _, sub := range subs {
		if !sub.closed.Swap(true) {
			close(sub.stopCh)
			sub.busSub.Unsubscribe()
			close(sub.ch)
		}
	}
	delete(p.subs, taskID)
}

// Ensure BusPublisher implements ResultPublisher.
var _ ResultPublisher = (*BusPublisher)(nil)
