package trending

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// circuitState represents the state of a circuit breaker
type circuitState int

const (
	stateClosed   circuitState = iota // Normal operation
	stateOpen                         // Endpoint failing, calls skipped
	stateHalfOpen                     // One trial call allowed
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// circuitBreaker stops calling the trending endpoint after repeated failures
type circuitBreaker struct {
	lastFailure      time.Time
	now              func() time.Time
	logger           *slog.Logger
	failures         int
	failureThreshold int
	openDuration     time.Duration
	state            circuitState
	mu               sync.Mutex
}

func newCircuitBreaker(now func() time.Time, logger *slog.Logger) *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: 3,               // Open after 3 consecutive failures
		openDuration:     5 * time.Minute, // Keep open for 5 minutes
		now:              now,
		logger:           logger,
	}
}

// canAttempt reports whether the endpoint may be called.
// An open circuit moves to half-open once the open period has passed.
func (cb *circuitBreaker) canAttempt() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateOpen && cb.now().Sub(cb.lastFailure) > cb.openDuration {
		cb.setState(stateHalfOpen)
	}

	if cb.state != stateOpen {
		return nil
	}

	nextRetry := cb.lastFailure.Add(cb.openDuration)
	return fmt.Errorf("%w (failures: %d, next retry: %s)",
		ErrCircuitOpen,
		cb.failures,
		nextRetry.Format("15:04:05"))
}

// recordSuccess resets failure tracking
func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.setState(stateClosed)
}

// recordFailure counts a failed call. A failure while half-open reopens immediately.
func (cb *circuitBreaker) recordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	if cb.failures >= cb.failureThreshold || cb.state == stateHalfOpen {
		if cb.state != stateOpen {
			cb.logger.Warn("opening trending circuit",
				"failures", cb.failures,
				"open_for", cb.openDuration,
				"error", err)
		}
		cb.state = stateOpen
		return
	}

	cb.logger.Debug("trending endpoint failure",
		"failures", cb.failures,
		"threshold", cb.failureThreshold,
		"error", err)
}

// setState must be called with the lock held
func (cb *circuitBreaker) setState(s circuitState) {
	if cb.state == s {
		return
	}
	cb.logger.Info("trending circuit state changed", "from", cb.state, "to", s)
	cb.state = s
}
