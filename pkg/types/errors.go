package types

import (
	"fmt"
	"time"
)

// ThrottlingError is returned by a backend that rejected a request for rate reasons.
// It is retried by the event loop and only surfaces once the attempt budget is spent.
type ThrottlingError struct {
	Message string
	// RetryAfter is the server's retry hint. It raises, never lowers, the next backoff delay.
	RetryAfter time.Duration
	Attempts   int
	Cause      error
}

func (e *ThrottlingError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "model backend throttled the request"
	}
	if e.Attempts > 0 {
		return fmt.Sprintf("%s (after %d attempts)", msg, e.Attempts)
	}
	return msg
}

func (e *ThrottlingError) Unwrap() error { return e.Cause }

// ContextOverflowError is returned by a backend when history plus system prompt exceed
// the model's input capacity.
type ContextOverflowError struct {
	Message string
	Cause   error
}

func (e *ContextOverflowError) Error() string {
	if e.Message == "" {
		return "input exceeds the model context window"
	}
	return e.Message
}

func (e *ContextOverflowError) Unwrap() error { return e.Cause }

// OutputExhaustedError reports a response truncated by the output-token ceiling.
// Partial holds the truncated assistant message with incomplete tool uses replaced by text;
// it is never committed to the history.
type OutputExhaustedError struct {
	StopReason StopReason
	Partial    *Message
}

func (e *OutputExhaustedError) Error() string {
	return "model stopped after reaching the maximum output token limit"
}

// NormalizationError reports a backend stream that violated the chunk protocol.
type NormalizationError struct {
	Reason string
	Cause  error
}

func (e *NormalizationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed model stream: %s: %v", e.Reason, e.Cause)
	}
	return "malformed model stream: " + e.Reason
}

func (e *NormalizationError) Unwrap() error { return e.Cause }

// ToolExecutionError is a tool failure. The tool executor converts it into an error
// ToolResultBlock; it never fails a cycle.
type ToolExecutionError struct {
	ToolName  string
	ToolUseID string
	Cause     error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.ToolName, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

// CycleError wraps a fatal cycle failure with the context a caller needs to decide on
// remediation.
type CycleError struct {
	Cycle          int
	LastStopReason StopReason
	Err            error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %d failed: %v", e.Cycle, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }
