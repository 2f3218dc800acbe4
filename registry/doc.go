// Package registry tracks the set of known agents: their type tag,
// capabilities, and idle/busy state.
//
// The dispatcher asks for an idle agent matching a task's type, reserves it
// atomically before handing the task to the execution adapter, and releases
// it when the attempt ends. Reservation is atomic with respect to concurrent
// callers: two dispatch iterations can never reserve the same agent.
//
// Agents are registered at orchestrator start and live for the engine's
// lifetime. Watchers receive add/update/remove events for monitoring.
package registry
