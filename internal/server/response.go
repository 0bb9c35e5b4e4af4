package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/strands-agents/sdk-go/internal/agent"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeBusy            = "INVOCATION_IN_PROGRESS"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeContextOverflow = "CONTEXT_OVERFLOW"
	ErrCodeOutputExhausted = "OUTPUT_EXHAUSTED"
	ErrCodeProviderError   = "PROVIDER_ERROR"
	ErrCodeCancelled       = "CANCELLED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorWithDetails(w, status, code, message, nil)
}

// writeErrorWithDetails writes an error response with details.
func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeInvocationError writes err with the status its type maps to.
func writeInvocationError(w http.ResponseWriter, err error) {
	status, detail := describeError(err)
	writeJSON(w, status, ErrorResponse{Error: detail})
}

// describeError maps an invocation error to an HTTP status and error body.
func describeError(err error) (int, ErrorDetail) {
	detail := ErrorDetail{Message: err.Error()}

	var ce *types.CycleError
	if errors.As(err, &ce) {
		detail.Details = map[string]any{"cycle": ce.Cycle}
		if ce.LastStopReason != "" {
			detail.Details["lastStopReason"] = ce.LastStopReason
		}
	}

	var (
		throttled *types.ThrottlingError
		overflow  *types.ContextOverflowError
		exhausted *types.OutputExhaustedError
	)
	switch {
	case errors.Is(err, agent.ErrInvocationInProgress):
		detail.Code = ErrCodeBusy
		return http.StatusConflict, detail
	case errors.As(err, &throttled):
		detail.Code = ErrCodeRateLimited
		return http.StatusTooManyRequests, detail
	case errors.As(err, &overflow):
		detail.Code = ErrCodeContextOverflow
		return http.StatusRequestEntityTooLarge, detail
	case errors.As(err, &exhausted):
		detail.Code = ErrCodeOutputExhausted
		return http.StatusUnprocessableEntity, detail
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		detail.Code = ErrCodeCancelled
		return http.StatusServiceUnavailable, detail
	case ce != nil:
		detail.Code = ErrCodeProviderError
		return http.StatusBadGateway, detail
	default:
		detail.Code = ErrCodeInternalError
		return http.StatusInternalServerError, detail
	}
}
