package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: execution timeouts, provider hiccups.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid input, unknown agent type, a failed dependency.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion or contention.
	// Examples: rate limiting, no idle agent of the required type.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors or bugs.
	// Examples: recovered panics, wrapped causes of unknown origin.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific failure types within categories.
type ErrorCode string

// Error codes for engine failure scenarios.
const (
	// Transient errors
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Execution exceeded its deadline
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Provider temporarily unavailable
	ErrCodeExecution   ErrorCode = "EXECUTION_FAILED" // Agent reported a failure

	// Permanent errors
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"          // Task or agent does not exist
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"      // Malformed submission
	ErrCodeUnknownAgentType ErrorCode = "UNKNOWN_AGENT_TYPE" // No agent registered for the type
	ErrCodeDependencyFailed ErrorCode = "DEPENDENCY_FAILED"  // A prerequisite task failed
	ErrCodeCancelled        ErrorCode = "CANCELLED"          // Task was cancelled before running
	ErrCodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"  // Retry budget spent

	// Resource errors
	ErrCodeRateLimit   ErrorCode = "RATE_LIMITED"  // Dispatch or provider rate limit hit
	ErrCodeNoIdleAgent ErrorCode = "NO_IDLE_AGENT" // All agents of the type are busy

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
	ErrCodePanic    ErrorCode = "PANIC"    // Recovered from panic in agent code
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeExecution:
		return CategoryTransient

	case ErrCodeNotFound, ErrCodeInvalidInput, ErrCodeUnknownAgentType,
		ErrCodeDependencyFailed, ErrCodeCancelled, ErrCodeRetriesExhausted:
		return CategoryPermanent

	case ErrCodeRateLimit, ErrCodeNoIdleAgent:
		return CategoryResource

	case ErrCodeInternal, ErrCodePanic:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:          "execution timed out",
	ErrCodeUnavailable:      "provider temporarily unavailable",
	ErrCodeExecution:        "agent execution failed",
	ErrCodeNotFound:         "not found",
	ErrCodeInvalidInput:     "invalid input provided",
	ErrCodeUnknownAgentType: "no agent registered for type",
	ErrCodeDependencyFailed: "dependency task failed",
	ErrCodeCancelled:        "task cancelled",
	ErrCodeRetriesExhausted: "retry budget exhausted",
	ErrCodeRateLimit:        "rate limit exceeded",
	ErrCodeNoIdleAgent:      "no idle agent available",
	ErrCodeInternal:         "internal error",
	ErrCodePanic:            "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
