package provider

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/strands-agents/sdk-go/pkg/types"
)

var throttlePatterns = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"throttl",
	"too many requests",
	"overloaded",
}

// statusTooManyRequests matches 429 only where it reads as an HTTP status.
var statusTooManyRequests = regexp.MustCompile(`(?:^|status(?: code)?[:= ]\s*|http[/0-9.]*\s+|code[:= ]\s*)429\b`)

var retryAfterPattern = regexp.MustCompile(`retry[- _]after[":= ]*\s*(\d+(?:\.\d+)?)\s*(ms|s)?`)

var overflowPatterns = []string{
	"context length",
	"context_length_exceeded",
	"context window",
	"maximum context length",
	"prompt is too long",
	"input is too long",
	"too many tokens",
	"exceeds the model's maximum",
}

// ClassifyError maps raw backend errors onto the typed throttling and overflow errors.
// Errors that are already typed, cancellations and unrecognized errors are returned as is.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var te *types.ThrottlingError
	var oe *types.ContextOverflowError
	if errors.As(err, &te) || errors.As(err, &oe) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, p := range overflowPatterns {
		if strings.Contains(msg, p) {
			return &types.ContextOverflowError{Message: err.Error(), Cause: err}
		}
	}
	if isThrottle(msg) {
		return &types.ThrottlingError{Message: err.Error(), RetryAfter: retryAfter(msg), Cause: err}
	}
	return err
}

func isThrottle(msg string) bool {
	if statusTooManyRequests.MatchString(msg) {
		return true
	}
	for _, p := range throttlePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// retryAfter extracts a server retry hint in seconds, or milliseconds with an ms suffix.
func retryAfter(msg string) time.Duration {
	m := retryAfterPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if m[2] == "ms" {
		return time.Duration(v * float64(time.Millisecond))
	}
	return time.Duration(v * float64(time.Second))
}
