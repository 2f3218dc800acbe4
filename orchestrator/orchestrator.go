package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/conductor/errors"
	"github.com/vinayprograms/conductor/logging"
	"github.com/vinayprograms/conductor/queue"
	"github.com/vinayprograms/conductor/ratelimit"
	"github.com/vinayprograms/conductor/registry"
	"github.com/vinayprograms/conductor/results"
	"github.com/vinayprograms/conductor/shutdown"
	"github.com/vinayprograms/conductor/state"
	"github.com/vinayprograms/conductor/tasks"
)

// Capability executes a single enriched instruction and returns its
// output. Implementations are invoked from worker goroutines and must
// not assume dispatcher-thread affinity.
type Capability interface {
	Execute(ctx context.Context, instruction string) (string, error)
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, instruction string) (string, error)

// Execute implements Capability.
func (f CapabilityFunc) Execute(ctx context.Context, instruction string) (string, error) {
	return f(ctx, instruction)
}

// Callback receives the terminal snapshot of a task. It fires exactly
// once per submission, on completion or failure.
type Callback func(task *tasks.Task)

// ErrorHandler is invoked when a task fails terminally and its last
// error carries the registered code.
type ErrorHandler func(taskID string, err error)

// QueueStats holds task counts by lifecycle state.
type QueueStats struct {
	Pending   int
	Waiting   int
	Running   int
	Completed int
	Failed    int
}

// dispatchResource names the rate-limited resource for dispatches.
const dispatchResource = "dispatch"

// Orchestrator coordinates tasks, agents, and executions.
type Orchestrator struct {
	queue     queue.TaskQueue
	registry  registry.Registry
	store     state.ContextStore
	publisher results.ResultPublisher
	limiter   ratelimit.RateLimiter
	log       *logging.Logger
	coord     *shutdown.Coordinator

	pollInterval time.Duration
	maxRetries   int
	retryDelay   time.Duration
	execTimeout  time.Duration

	mu        sync.Mutex
	tasks     map[string]*tasks.Task
	callbacks map[string]Callback
	notified  map[string]bool
	caps      map[string]Capability
	handlers  map[errors.ErrorCode]ErrorHandler
	timers    map[string]*time.Timer

	seq     atomic.Uint64
	started atomic.Bool
	closed  atomic.Bool

	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithQueue replaces the default in-memory task queue.
func WithQueue(q queue.TaskQueue) Option {
	return func(o *Orchestrator) {
		o.queue = q
	}
}

// WithRegistry replaces the default in-memory agent registry.
func WithRegistry(r registry.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = r
	}
}

// WithContextStore replaces the default shared context store.
func WithContextStore(s state.ContextStore) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// WithResultPublisher replaces the default in-memory result publisher.
func WithResultPublisher(p results.ResultPublisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithPollInterval caps how long the dispatcher sleeps when idle.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxRetries sets the retry budget per task.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base backoff between attempts. The actual
// delay grows with the attempt number.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithExecTimeout bounds a single execution attempt. Zero means no
// per-attempt deadline.
func WithExecTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.execTimeout = d
	}
}

// WithDispatchLimit caps dispatches per second across all agents.
func WithDispatchLimit(perSecond int) Option {
	return func(o *Orchestrator) {
		if perSecond <= 0 {
			return
		}
		l := ratelimit.NewMemoryLimiter()
		l.SetCapacity(dispatchResource, perSecond, time.Second)
		o.limiter = l
	}
}

// New creates an orchestrator with in-memory backends unless overridden.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pollInterval: 100 * time.Millisecond,
		maxRetries:   3,
		retryDelay:   time.Second,
		tasks:        make(map[string]*tasks.Task),
		callbacks:    make(map[string]Callback),
		notified:     make(map[string]bool),
		caps:         make(map[string]Capability),
		handlers:     make(map[errors.ErrorCode]ErrorHandler),
		timers:       make(map[string]*time.Timer),
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.queue == nil {
		o.queue = queue.NewMemoryQueue()
	}
	if o.registry == nil {
		o.registry = registry.NewMemoryRegistry()
	}
	if o.store == nil {
		o.store = state.NewMemoryStore()
	}
	if o.publisher == nil {
		o.publisher = results.NewMemoryPublisher()
	}
	if o.log == nil {
		o.log = logging.New().WithComponent("orchestrator")
	}

	o.coord = shutdown.NewCoordinator(shutdown.DefaultConfig())
	o.coord.RegisterFuncWithPhase("stop-intake", o.stopIntake, shutdown.PhaseStopIntake)
	o.coord.RegisterFuncWithPhase("drain-executions", o.drain, shutdown.PhaseDrain)
	o.coord.RegisterFuncWithPhase("close-stores", o.closeStores, shutdown.PhaseCloseStores)

	return o
}

// RegisterAgent adds an agent with a generated ID and binds its
// capability. The agent starts idle.
func (o *Orchestrator) RegisterAgent(agentType tasks.AgentType, capabilities []string, cap Capability) (string, error) {
	id := string(agentType) + "-" + uuid.New().String()[:8]
	if err := o.RegisterAgentWithID(id, agentType, capabilities, cap); err != nil {
		return "", err
	}
	return id, nil
}

// RegisterAgentWithID adds an agent under a caller-chosen ID.
func (o *Orchestrator) RegisterAgentWithID(id string, agentType tasks.AgentType, capabilities []string, cap Capability) error {
	if o.closed.Load() {
		return errors.Internal("orchestrator is shut down")
	}

	info := registry.AgentInfo{
		ID:           id,
		Type:         agentType,
		Capabilities: capabilities,
		State:        registry.StateIdle,
		RegisteredAt: time.Now(),
	}
	if err := o.registry.Register(info); err != nil {
		return err
	}

	o.mu.Lock()
	o.caps[id] = cap
	o.mu.Unlock()

	o.log.AgentRegistered(id, agentType.String())
	return nil
}

// SubmitOption configures a task submission.
type SubmitOption func(*tasks.Task, *submission)

type submission struct {
	callback Callback
}

// WithPriority sets the task priority. Default is normal.
func WithPriority(p tasks.Priority) SubmitOption {
	return func(t *tasks.Task, _ *submission) {
		t.Priority = p
	}
}

// WithContext attaches caller key/value data merged into the enriched
// instruction at execution time.
func WithContext(ctx map[string]string) SubmitOption {
	return func(t *tasks.Task, _ *submission) {
		t.Context = ctx
	}
}

// WithDependencies names tasks that must complete before this one runs.
func WithDependencies(ids ...string) SubmitOption {
	return func(t *tasks.Task, _ *submission) {
		t.Dependencies = ids
	}
}

// WithCallback registers a completion callback for the task. It fires
// exactly once, with the terminal snapshot.
func WithCallback(cb Callback) SubmitOption {
	return func(_ *tasks.Task, s *submission) {
		s.callback = cb
	}
}

// Submit accepts a task for execution and returns its ID. A submission
// naming an agent type with no registered agents is rejected here, so
// an unroutable task never enters the queue.
func (o *Orchestrator) Submit(agentType tasks.AgentType, instruction string, opts ...SubmitOption) (string, error) {
	if o.closed.Load() {
		return "", errors.Internal("orchestrator is shut down")
	}

	task := &tasks.Task{
		ID:          tasks.NewID(),
		AgentType:   agentType,
		Instruction: instruction,
		Priority:    tasks.PriorityNormal,
		Status:      tasks.StatusPending,
		CreatedAt:   time.Now(),
		Sequence:    o.seq.Add(1),
	}

	var sub submission
	for _, opt := range opts {
		opt(task, &sub)
	}

	if err := task.Validate(); err != nil {
		return "", errors.InvalidInput(err.Error())
	}
	if !o.registry.HasType(agentType) {
		return "", errors.UnknownAgentType(agentType.String())
	}

	o.mu.Lock()
	for _, depID := range task.Dependencies {
		if _, ok := o.tasks[depID]; !ok {
			o.mu.Unlock()
			return "", errors.InvalidInput("unknown dependency: "+depID,
				errors.WithMetadata("dependency_id", depID))
		}
	}
	if !o.depsReadyLocked(task) {
		task.Status = tasks.StatusWaiting
	}
	o.tasks[task.ID] = task
	if sub.callback != nil {
		o.callbacks[task.ID] = sub.callback
	}
	o.mu.Unlock()

	if err := o.queue.Enqueue(task); err != nil {
		o.mu.Lock()
		delete(o.tasks, task.ID)
		delete(o.callbacks, task.ID)
		o.mu.Unlock()
		return "", errors.Wrap(err, "enqueue failed", errors.WithTaskID(task.ID))
	}

	o.publishPending(task)
	o.log.TaskSubmitted(task.ID, agentType.String(), task.Priority.String())
	o.signalWake()
	return task.ID, nil
}

// Cancel removes a queued task and fails it with reason "cancelled".
// Returns false if the task is unknown, already running, or terminal.
// Running tasks cannot be cancelled by the core.
func (o *Orchestrator) Cancel(taskID string) bool {
	o.mu.Lock()
	task, ok := o.tasks[taskID]
	if !ok || !task.Status.Queued() {
		o.mu.Unlock()
		return false
	}
	o.mu.Unlock()

	// The dispatcher may pop the task between the check above and this
	// removal. A queued task is either in the queue or parked on a retry
	// timer; if it is in neither place it is already in flight.
	if _, err := o.queue.Remove(taskID); err != nil {
		if !o.cancelRetryTimer(taskID) {
			return false
		}
	}

	o.failTask(task, errors.Cancelled(taskID), task.RetryCount)
	o.log.TaskCancelled(taskID)
	return true
}

// cancelRetryTimer stops and removes a pending retry timer for the
// task, reporting whether one existed.
func (o *Orchestrator) cancelRetryTimer(taskID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.timers[taskID]
	if ok {
		t.Stop()
		delete(o.timers, taskID)
	}
	return ok
}

// Resubmit re-enters a terminal task under the same ID. Status and retry
// count reset; the task competes as a fresh submission.
func (o *Orchestrator) Resubmit(taskID string) error {
	if o.closed.Load() {
		return errors.Internal("orchestrator is shut down")
	}

	o.mu.Lock()
	task, ok := o.tasks[taskID]
	if !ok {
		o.mu.Unlock()
		return tasks.ErrTaskNotFound
	}
	if !task.Status.IsTerminal() {
		o.mu.Unlock()
		return tasks.ErrTaskNotTerminal
	}

	task.Status = tasks.StatusPending
	task.Result = ""
	task.RetryCount = 0
	task.StartedAt = nil
	task.CompletedAt = nil
	task.CreatedAt = time.Now()
	task.Sequence = o.seq.Add(1)
	if !o.depsReadyLocked(task) {
		task.Status = tasks.StatusWaiting
	}
	delete(o.notified, taskID)
	o.mu.Unlock()

	if err := o.queue.Enqueue(task); err != nil {
		return errors.Wrap(err, "enqueue failed", errors.WithTaskID(taskID))
	}

	o.publishPending(task)
	o.log.TaskSubmitted(task.ID, task.AgentType.String(), task.Priority.String())
	o.signalWake()
	return nil
}

// GetTask returns a snapshot of the task. The caller owns the copy.
func (o *Orchestrator) GetTask(taskID string) (*tasks.Task, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	task, ok := o.tasks[taskID]
	if !ok {
		return nil, tasks.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// QueueStatus returns task counts by lifecycle state.
func (o *Orchestrator) QueueStatus() QueueStats {
	o.mu.Lock()
	defer o.mu.Unlock()

	var s QueueStats
	for _, t := range o.tasks {
		switch t.Status {
		case tasks.StatusPending:
			s.Pending++
		case tasks.StatusWaiting:
			s.Waiting++
		case tasks.StatusRunning:
			s.Running++
		case tasks.StatusCompleted:
			s.Completed++
		case tasks.StatusFailed:
			s.Failed++
		}
	}
	return s
}

// AgentStatuses returns a snapshot of all registered agents.
func (o *Orchestrator) AgentStatuses() ([]registry.AgentInfo, error) {
	return o.registry.List()
}

// RegisterErrorHandler installs a handler invoked on terminal failure
// of tasks whose last error carries the given code. One handler per
// code; a second registration replaces the first.
func (o *Orchestrator) RegisterErrorHandler(code errors.ErrorCode, handler ErrorHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[code] = handler
}

// SharedContext returns the shared key/value scratchpad visible to all
// executions. Last writer wins; concurrent writers to the same key race.
func (o *Orchestrator) SharedContext() state.ContextStore {
	return o.store
}

// Results returns the result publisher for queries and subscriptions.
func (o *Orchestrator) Results() results.ResultPublisher {
	return o.publisher
}

// Start launches the dispatcher loop.
func (o *Orchestrator) Start() error {
	if o.closed.Load() {
		return errors.Internal("orchestrator is shut down")
	}
	if o.started.Swap(true) {
		return errors.Internal("orchestrator already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	go o.run(ctx)
	return nil
}

// Shutdown stops intake, drains in-flight executions, and closes the
// backing stores. The context bounds the whole procedure.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.coord.Shutdown(ctx)
}

// stopIntake rejects new submissions and stops the dispatcher.
func (o *Orchestrator) stopIntake(ctx context.Context) error {
	o.closed.Store(true)

	o.mu.Lock()
	for id, t := range o.timers {
		t.Stop()
		delete(o.timers, id)
	}
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
		select {
		case <-o.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// drain waits for in-flight executions to finish.
func (o *Orchestrator) drain(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closeStores closes the queue, registry, stores, and limiter.
func (o *Orchestrator) closeStores(ctx context.Context) error {
	errs := []error{
		o.queue.Close(),
		o.registry.Close(),
		o.store.Close(),
		o.publisher.Close(),
	}
	if o.limiter != nil {
		errs = append(errs, o.limiter.Close())
	}
	return errors.Join(errs...)
}

// signalWake nudges the dispatcher without blocking.
func (o *Orchestrator) signalWake() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// publishPending records a pending result so subscribers see the task
// the moment it is accepted.
func (o *Orchestrator) publishPending(task *tasks.Task) {
	now := time.Now()
	o.publisher.Publish(context.Background(), task.ID, results.Result{
		TaskID:    task.ID,
		AgentType: task.AgentType,
		Status:    results.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
