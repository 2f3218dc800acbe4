// Package shutdown coordinates graceful teardown of engine components.
//
// Components register handlers in phases. Lower phases run first, and
// handlers within a phase run concurrently. The engine uses three
// phases: stop the dispatcher, drain in-flight executions, then close
// stores and the bus. A timeout bounds the whole sequence; work still
// running when it expires is abandoned.
package shutdown
