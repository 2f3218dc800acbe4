// Package results stores and publishes task outcomes.
//
// The executor publishes a result exactly once per terminal transition.
// Callers can Get a stored result, Subscribe for updates on a single
// task, or List across tasks with a filter. The bus-backed publisher
// additionally broadcasts every update on a per-task subject and every
// terminal result on an aggregate subject, which the recall archive
// follows.
package results
