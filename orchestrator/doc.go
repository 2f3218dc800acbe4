// Package orchestrator is the scheduling core of the engine. It accepts
// tasks, orders them by priority, gates them on dependencies, pairs them
// with idle agents, and recovers from failures with bounded retries and
// priority escalation.
//
// A single dispatcher goroutine owns all scheduling decisions; task
// execution runs on worker goroutines so long capability calls never
// block scheduling. Callers interact through an explicit Orchestrator
// instance: RegisterAgent, Submit, Cancel, GetTask, QueueStatus, and
// Shutdown. Every submitted task produces exactly one terminal
// notification through its callback and the result publisher.
package orchestrator
