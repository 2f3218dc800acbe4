package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

func newTestLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger()

	l.Debug("hidden")
	l.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Debug message leaked through Info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("Info message missing")
	}

	l.SetLevel(LevelDebug)
	l.Debug("now shown")
	if !strings.Contains(buf.String(), "now shown") {
		t.Error("Debug message missing after lowering level")
	}
}

func TestComponentPrefix(t *testing.T) {
	l, buf := newTestLogger()

	l.WithComponent("dispatcher").Info("cycle done")
	if !strings.Contains(buf.String(), "[dispatcher]") {
		t.Errorf("Expected component tag, got %q", buf.String())
	}
}

func TestFieldsFormatted(t *testing.T) {
	l, buf := newTestLogger()

	l.Info("event", map[string]interface{}{"task": "t-1"})
	if !strings.Contains(buf.String(), "task=t-1") {
		t.Errorf("Expected key=value field, got %q", buf.String())
	}
}

func TestTaskLifecycleHelpers(t *testing.T) {
	l, buf := newTestLogger()
	l.SetLevel(LevelDebug)

	l.TaskSubmitted("t-1", "research", "high")
	l.TaskDispatched("t-1", "agent-1", 1)
	l.RetryScheduled("t-1", 1, time.Second, fmt.Errorf("timeout"))
	l.TaskFailed("t-1", 3, fmt.Errorf("gave up"))
	l.TaskCompleted("t-2", "agent-1", time.Second)
	l.DependencyFailed("t-3", "t-1")
	l.TaskCancelled("t-4")
	l.AgentRegistered("agent-1", "research")
	l.DispatchBlocked("t-5", "no idle agent")

	out := buf.String()
	for _, want := range []string{
		"task_submitted", "task_dispatched", "retry_scheduled",
		"task_failed", "task_completed", "dependency_failed",
		"task_cancelled", "agent_registered", "dispatch_blocked",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in output", want)
		}
	}
}

func TestErrorFieldIncluded(t *testing.T) {
	l, buf := newTestLogger()

	l.TaskFailed("t-1", 3, fmt.Errorf("provider refused"))
	if !strings.Contains(buf.String(), "provider refused") {
		t.Errorf("Expected error text in output, got %q", buf.String())
	}
}
