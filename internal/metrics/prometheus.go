package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cyclesTotal     *prometheus.CounterVec
	throttleTotal   *prometheus.CounterVec
	recoveriesTotal *prometheus.CounterVec
	removedTotal    *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder registering its collectors with reg. A nil reg
// uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strands_model_requests_total",
				Help: "Total number of model requests by model, status, and error type",
			},
			[]string{"model", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strands_model_tokens_total",
				Help: "Total number of tokens used in model requests",
			},
			[]string{"model", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strands_model_request_duration_seconds",
				Help:    "Duration of model requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		cyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strands_cycles_total",
				Help: "Total number of completed event-loop cycles by stop reason",
			},
			[]string{"model", "stop_reason"},
		),
		throttleTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strands_throttle_total",
				Help: "Total number of throttled model requests that were retried",
			},
			[]string{"model"},
		),
		recoveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strands_context_recoveries_total",
				Help: "Total number of context overflow recoveries by manager and outcome",
			},
			[]string{"manager", "success"},
		),
		removedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strands_context_removed_messages_total",
				Help: "Total number of messages removed by overflow recovery",
			},
			[]string{"manager"},
		),
	}
}

// ObserveModelCall records metrics for a model request.
func (p *PrometheusRecorder) ObserveModelCall(model, status, errorType string, usage types.Usage, duration time.Duration) {
	p.requestsTotal.WithLabelValues(model, status, errorType).Inc()

	// Record tokens only on success
	if status == StatusSuccess {
		p.tokensTotal.WithLabelValues(model, "input").Add(float64(usage.InputTokens))
		p.tokensTotal.WithLabelValues(model, "output").Add(float64(usage.OutputTokens))
	}

	p.requestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// IncCycle increments the cycle counter.
func (p *PrometheusRecorder) IncCycle(model string, stop types.StopReason) {
	p.cyclesTotal.WithLabelValues(model, string(stop)).Inc()
}

// IncThrottle increments the throttle counter.
func (p *PrometheusRecorder) IncThrottle(model string) {
	p.throttleTotal.WithLabelValues(model).Inc()
}

// ObserveRecovery records an overflow recovery attempt.
func (p *PrometheusRecorder) ObserveRecovery(manager string, success bool, removed int) {
	p.recoveriesTotal.WithLabelValues(manager, strconv.FormatBool(success)).Inc()
	if removed > 0 {
		p.removedTotal.WithLabelValues(manager).Add(float64(removed))
	}
}
