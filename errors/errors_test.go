package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	err := New(ErrCodeTimeout, "provider call timed out")

	if err.Code() != ErrCodeTimeout {
		t.Errorf("Expected TIMEOUT, got %s", err.Code())
	}
	if err.Category() != CategoryTransient {
		t.Errorf("Expected transient, got %s", err.Category())
	}
	if !err.Retryable() {
		t.Error("Expected timeout to be retryable")
	}
	if err.Timestamp().IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestCategoryRetrySemantics(t *testing.T) {
	cases := []struct {
		code      ErrorCode
		category  ErrorCategory
		retryable bool
	}{
		{ErrCodeTimeout, CategoryTransient, true},
		{ErrCodeExecution, CategoryTransient, true},
		{ErrCodeUnavailable, CategoryTransient, true},
		{ErrCodeInvalidInput, CategoryPermanent, false},
		{ErrCodeUnknownAgentType, CategoryPermanent, false},
		{ErrCodeDependencyFailed, CategoryPermanent, false},
		{ErrCodeCancelled, CategoryPermanent, false},
		{ErrCodeRetriesExhausted, CategoryPermanent, false},
		{ErrCodeRateLimit, CategoryResource, true},
		{ErrCodeNoIdleAgent, CategoryResource, true},
		{ErrCodeInternal, CategoryInternal, false},
		{ErrCodePanic, CategoryInternal, false},
	}
	for _, c := range cases {
		if got := c.code.DefaultCategory(); got != c.category {
			t.Errorf("Code %s: expected category %s, got %s", c.code, c.category, got)
		}
		if got := c.code.DefaultRetryable(); got != c.retryable {
			t.Errorf("Code %s: expected retryable=%v, got %v", c.code, c.retryable, got)
		}
	}
}

func TestWithRetryableOverride(t *testing.T) {
	err := New(ErrCodeTimeout, "give up", WithRetryable(false))
	if err.Retryable() {
		t.Error("Expected override to win over category default")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := ExecutionFailed("task-1", "bad output")
	wrapped := Wrap(inner, "dispatch attempt 2")

	if wrapped.Code() != ErrCodeExecution {
		t.Errorf("Expected EXECUTION_FAILED preserved, got %s", wrapped.Code())
	}
	if wrapped.TaskID() != "task-1" {
		t.Errorf("Expected task ID preserved, got %q", wrapped.TaskID())
	}
	if !stderrors.Is(wrapped, inner) {
		t.Error("Expected wrapped error to match inner via errors.Is")
	}
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("socket closed"), "agent call")
	if wrapped.Code() != ErrCodeInternal {
		t.Errorf("Expected INTERNAL for plain error, got %s", wrapped.Code())
	}
}

func TestWrapContextErrors(t *testing.T) {
	if got := Wrap(context.DeadlineExceeded, "exec").Code(); got != ErrCodeTimeout {
		t.Errorf("Expected TIMEOUT for deadline exceeded, got %s", got)
	}
	if got := Wrap(context.Canceled, "exec").Code(); got != ErrCodeCancelled {
		t.Errorf("Expected CANCELLED for canceled context, got %s", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "nothing") != nil {
		t.Error("Expected nil for nil input")
	}
}

func TestIsHelpers(t *testing.T) {
	err := DependencyFailed("task-2", "task-1")

	if !Is(err, ErrCodeDependencyFailed) {
		t.Error("Expected Is to match code")
	}
	if !IsPermanent(err) {
		t.Error("Expected dependency failure to be permanent")
	}
	if IsRetryable(err) {
		t.Error("Expected dependency failure to not be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("Expected plain errors to not be retryable")
	}
	if Code(fmt.Errorf("plain")) != "" {
		t.Error("Expected empty code for plain errors")
	}
}

func TestRetriesExhausted(t *testing.T) {
	last := Timeout("attempt 3 timed out")
	err := RetriesExhausted("task-9", 3, last)

	if err.Code() != ErrCodeRetriesExhausted {
		t.Errorf("Expected RETRIES_EXHAUSTED, got %s", err.Code())
	}
	if IsRetryable(err) {
		t.Error("Expected exhausted retries to be terminal")
	}
	if !stderrors.Is(err, last) {
		t.Error("Expected final attempt error in the chain")
	}
}

func TestDependencyFailedMetadata(t *testing.T) {
	err := DependencyFailed("task-2", "task-1")
	if err.Metadata()["dependency_id"] != "task-1" {
		t.Errorf("Expected dependency_id metadata, got %v", err.Metadata())
	}
}

func TestRecoverPanic(t *testing.T) {
	err := RecoverPanic("index out of range")
	if err.Code() != ErrCodePanic {
		t.Errorf("Expected PANIC, got %s", err.Code())
	}
	if err.Retryable() {
		t.Error("Expected panic to not be retryable by default")
	}

	if RecoverPanic(nil) != nil {
		t.Error("Expected nil for nil panic value")
	}
}

func TestCause(t *testing.T) {
	root := fmt.Errorf("root")
	err := Wrap(Wrap(root, "middle"), "outer")
	if Cause(err) != root {
		t.Errorf("Expected root cause, got %v", Cause(err))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := ExecutionFailed("task-1", "bad output",
		WithAgentID("coder-1"), WithMetadata("attempt", "2"))

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Error
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Code() != ErrCodeExecution {
		t.Errorf("Expected EXECUTION_FAILED, got %s", decoded.Code())
	}
	if decoded.AgentID() != "coder-1" || decoded.TaskID() != "task-1" {
		t.Errorf("Expected IDs preserved, got %s/%s", decoded.AgentID(), decoded.TaskID())
	}
	if decoded.Retryable() != orig.Retryable() {
		t.Error("Expected retryable preserved")
	}
}
