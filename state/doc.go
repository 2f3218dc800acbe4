// Package state implements the shared context store: a key-value
// scratchpad visible to every task in the engine.
//
// Writes are last-writer-wins. Each write bumps a monotonic revision so
// readers can tell stale snapshots apart. Watchers receive change
// notifications for keys matching a pattern; notifications are dropped
// rather than blocking a slow consumer.
//
// The store holds opaque string values. Task-scoped context travels on
// the task itself; this store is for state that outlives a single task,
// such as findings one agent leaves for another.
package state
