// Package tasks defines the task data model shared across the orchestration
// engine: the Task record itself, its priority and status enums, and the
// agent type tags that route a task to a capability class.
//
// A Task is an immutable-identity record. Its ID is assigned once at
// submission and never reused. Status moves through a small lifecycle:
//
//	pending -> running -> completed
//	pending -> waiting_on_dependency -> pending -> ...
//	running -> pending (retry) -> ... -> failed
//
// Completed and failed are terminal. A terminal task never re-enters the
// queue except through explicit resubmission, which keeps the same ID but
// resets the lifecycle.
//
// Ownership: the orchestrator exclusively owns Task records. Callers receive
// clones from query methods and never mutate the originals.
package tasks
