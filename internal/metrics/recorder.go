// Package metrics records event-loop activity.
package metrics

import (
	"time"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// Model call outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder defines the interface for recording event-loop metrics.
type Recorder interface {
	// ObserveModelCall records one backend request, retries included.
	ObserveModelCall(model, status, errorType string, usage types.Usage, duration time.Duration)

	// IncCycle counts a completed cycle by its stop reason.
	IncCycle(model string, stop types.StopReason)

	// IncThrottle counts a throttled request that will be retried.
	IncThrottle(model string)

	// ObserveRecovery records an overflow recovery attempt and the messages it removed.
	ObserveRecovery(manager string, success bool, removed int)
}

// NoopRecorder discards all metrics.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder.
func Nop() Recorder {
	return NoopRecorder{}
}

func (NoopRecorder) ObserveModelCall(_, _, _ string, _ types.Usage, _ time.Duration) {}
func (NoopRecorder) IncCycle(_ string, _ types.StopReason)                             {}
func (NoopRecorder) IncThrottle(_ string)                                              {}
func (NoopRecorder) ObserveRecovery(_ string, _ bool, _ int)                           {}
