package domain

import "time"

// BreakerState is the state of a per-source circuit breaker
type BreakerState string

// breaker states
const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// CircuitState is a point-in-time view of one source's breaker
type CircuitState struct {
	Source          string       `json:"source"`
	State           BreakerState `json:"state"`
	FailureCount    int          `json:"failure_count"`
	LastFailure     time.Time    `json:"last_failure"`
	LastStateChange time.Time    `json:"last_state_change"`
}
