package breaker

import (
	"sync"
	"time"
)

// State is the circuit breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Policy configures failure threshold and reset behavior.
type Policy struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{FailureThreshold: 5, ResetTimeout: 60 * time.Second}
}

// TransitionFunc observes state changes. It runs with the breaker lock held and
// must not call back into the breaker.
type TransitionFunc func(from, to State)

// Snapshot is a point-in-time view of the breaker.
type Snapshot struct {
	State         State     `json:"state"`
	FailureCount  int       `json:"failure_count"`
	LastFailureAt time.Time `json:"last_failure_at"`
	ProbeInFlight bool      `json:"probe_in_flight"`
}

// CircuitBreaker tracks consecutive upstream failures for a single dependency.
type CircuitBreaker struct {
	mu           sync.Mutex
	policy       Policy
	onTransition TransitionFunc

	state         State
	failureCount  int
	lastFailureAt time.Time
	probeInFlight bool
}

func New(policy Policy, onTransition TransitionFunc) *CircuitBreaker {
	def := DefaultPolicy()
	if policy.FailureThreshold <= 0 {
		policy.FailureThreshold = def.FailureThreshold
	}
	if policy.ResetTimeout <= 0 {
		policy.ResetTimeout = def.ResetTimeout
	}
	return &CircuitBreaker{policy: policy, onTransition: onTransition, state: StateClosed}
}

// Allow reports whether a call may proceed at now. An open breaker whose cooldown
// has elapsed moves to half-open and grants exactly one trial call.
func (cb *CircuitBreaker) Allow(now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if now.Sub(cb.lastFailureAt) <= cb.policy.ResetTimeout {
			return false
		}
		cb.transition(StateHalfOpen)
		cb.probeInFlight = true
		return true
	case StateHalfOpen:
		if cb.probeInFlight {
			return false
		}
		cb.probeInFlight = true
		return true
	default:
		cb.transition(StateClosed)
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.probeInFlight = false
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure(now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureAt = now
	cb.probeInFlight = false

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.policy.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	case StateOpen:
		// Already open; the cooldown restarts from now.
	default:
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		State:         cb.state,
		FailureCount:  cb.failureCount,
		LastFailureAt: cb.lastFailureAt,
		ProbeInFlight: cb.probeInFlight,
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Policy() Policy {
	return cb.policy
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onTransition != nil {
		cb.onTransition(from, to)
	}
}
