package events

import (
	"time"

	"ddd-users/domain/shared"
)

// Metrics is the instrumentation hook of the registry. Implementations live
// outside the domain layer; NopMetrics is used when none is configured.
type Metrics interface {
	EventDispatched(kind shared.EventKind, handlers int, elapsed time.Duration)
	HandlerFailed(kind shared.EventKind)
	PendingAggregates(n int)
}

type nopMetrics struct{}

func (nopMetrics) EventDispatched(shared.EventKind, int, time.Duration) {}
func (nopMetrics) HandlerFailed(shared.EventKind)                       {}
func (nopMetrics) PendingAggregates(int)                                {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
