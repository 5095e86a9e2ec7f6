package aggregates

import (
	"time"

	"github.com/yungbote/neurobridge-coursestore/internal/observability"
)

// Hooks receives course tree write signals. Op names follow
// "Learning.CourseTree.<Operation>".
type Hooks interface {
	ObserveOperation(op, status string, dur time.Duration)
	IncConflict(op string)
	IncRetry(op string)
	// IncConversionFallback counts derived formats that could not be produced.
	IncConversionFallback(format string)
	ObserveForkSize(sections int)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) IncConversionFallback(string)                   {}
func (noopHooks) ObserveForkSize(int)                            {}

// metricsHooks forwards every signal to the prometheus collectors.
type metricsHooks struct{ m *observability.Metrics }

// NewObservabilityHooks returns hooks that record into metrics, or no-op
// hooks when metrics is nil.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{m: metrics}
}

func (h metricsHooks) ObserveOperation(op, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(op, status, dur)
}
func (h metricsHooks) IncConflict(op string)               { h.m.IncAggregateConflict(op) }
func (h metricsHooks) IncRetry(op string)                  { h.m.IncAggregateRetry(op) }
func (h metricsHooks) IncConversionFallback(format string) { h.m.IncConversionFallback(format) }
func (h metricsHooks) ObserveForkSize(sections int)        { h.m.ObserveForkSize(sections) }
