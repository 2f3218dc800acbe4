// Package logging provides real-time structured log output for the
// engine. Terminal task state lives in the result store; this package
// is for monitoring a running orchestrator, not forensics.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry in traditional format: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Engine event helpers ---
// Called by the dispatcher and executor at the points where a task
// changes hands. One method per lifecycle edge keeps call sites short.

// TaskSubmitted logs acceptance of a new task.
func (l *Logger) TaskSubmitted(taskID, agentType, priority string) {
	l.Info("task_submitted", map[string]interface{}{
		"task":     taskID,
		"type":     agentType,
		"priority": priority,
	})
}

// TaskDispatched logs a task being handed to an agent.
func (l *Logger) TaskDispatched(taskID, agentID string, attempt int) {
	l.Info("task_dispatched", map[string]interface{}{
		"task":    taskID,
		"agent":   agentID,
		"attempt": attempt,
	})
}

// TaskCompleted logs a successful terminal state.
func (l *Logger) TaskCompleted(taskID, agentID string, duration time.Duration) {
	l.Info("task_completed", map[string]interface{}{
		"task":     taskID,
		"agent":    agentID,
		"duration": duration.String(),
	})
}

// TaskFailed logs a failed terminal state.
func (l *Logger) TaskFailed(taskID string, attempts int, err error) {
	fields := map[string]interface{}{
		"task":     taskID,
		"attempts": attempts,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error("task_failed", fields)
}

// RetryScheduled logs a failed attempt that will run again.
func (l *Logger) RetryScheduled(taskID string, attempt int, delay time.Duration, err error) {
	fields := map[string]interface{}{
		"task":    taskID,
		"attempt": attempt,
		"delay":   delay.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Warn("retry_scheduled", fields)
}

// DependencyFailed logs a task failed because a prerequisite failed.
func (l *Logger) DependencyFailed(taskID, depID string) {
	l.Warn("dependency_failed", map[string]interface{}{
		"task":       taskID,
		"dependency": depID,
	})
}

// TaskCancelled logs a cancellation of a queued task.
func (l *Logger) TaskCancelled(taskID string) {
	l.Info("task_cancelled", map[string]interface{}{
		"task": taskID,
	})
}

// AgentRegistered logs a new agent joining the registry.
func (l *Logger) AgentRegistered(agentID, agentType string) {
	l.Info("agent_registered", map[string]interface{}{
		"agent": agentID,
		"type":  agentType,
	})
}

// DispatchBlocked logs a cycle where a task could not be placed.
func (l *Logger) DispatchBlocked(taskID, reason string) {
	l.Debug("dispatch_blocked", map[string]interface{}{
		"task":   taskID,
		"reason": reason,
	})
}
