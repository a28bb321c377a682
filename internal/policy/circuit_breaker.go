package policy

import (
	"sync"
	"time"
)

// circuitBreakerPolicy implements CircuitBreakerPolicy
type circuitBreakerPolicy struct {
	enabled bool
	// failureThreshold is the number of failures before opening the circuit
	failureThreshold int
	// successThreshold is the number of successes needed in half-open state to close
	successThreshold int
	// timeout is how long the circuit stays open before transitioning to half-open
	timeout time.Duration
	// circuits tracks circuit state per key
	circuits map[string]*circuitState
	mu       sync.RWMutex
}

// circuitState tracks the state of a circuit breaker for one key
type circuitState struct {
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastStateChange time.Time
	mu              sync.Mutex
}

// NewCircuitBreakerPolicy creates a new circuit breaker policy
func NewCircuitBreakerPolicy(enabled bool, failureThreshold, successThreshold int, timeout time.Duration) CircuitBreakerPolicy {
	if successThreshold <= 0 {
		successThreshold = 1
	}
	return &circuitBreakerPolicy{
		enabled:          enabled,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		circuits:         make(map[string]*circuitState),
	}
}

func (p *circuitBreakerPolicy) Enabled() bool {
	return p.enabled
}

func (p *circuitBreakerPolicy) Name() string {
	return "circuit_breaker"
}

// circuit returns the state for key, creating a closed circuit on first use
func (p *circuitBreakerPolicy) circuit(key string, now time.Time) *circuitState {
	p.mu.RLock()
	c, ok := p.circuits[key]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok = p.circuits[key]; !ok {
		c = &circuitState{
			state:           CircuitStateClosed,
			lastStateChange: now,
		}
		p.circuits[key] = c
	}
	return c
}

// maybeHalfOpen moves an open circuit to half-open after the timeout. Caller holds c.mu.
func (p *circuitBreakerPolicy) maybeHalfOpen(c *circuitState, now time.Time) {
	if c.state == CircuitStateOpen && now.Sub(c.lastStateChange) >= p.timeout {
		c.state = CircuitStateHalfOpen
		c.successCount = 0
		c.lastStateChange = now
	}
}

func (p *circuitBreakerPolicy) AllowRequest(key string, now time.Time) bool {
	if !p.enabled {
		return true
	}

	c := p.circuit(key, now)
	c.mu.Lock()
	defer c.mu.Unlock()

	p.maybeHalfOpen(c, now)
	return c.state != CircuitStateOpen
}

func (p *circuitBreakerPolicy) RecordSuccess(key string, now time.Time) {
	if !p.enabled {
		return
	}

	c := p.circuit(key, now)
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case CircuitStateHalfOpen:
		c.successCount++
		if c.successCount >= p.successThreshold {
			c.state = CircuitStateClosed
			c.failureCount = 0
			c.lastStateChange = now
		}
	case CircuitStateClosed:
		c.failureCount = 0
	}
}

func (p *circuitBreakerPolicy) RecordFailure(key string, now time.Time) {
	if !p.enabled {
		return
	}

	c := p.circuit(key, now)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.lastFailureTime = now

	switch c.state {
	case CircuitStateHalfOpen:
		// Any failure in half-open state immediately opens the circuit
		c.state = CircuitStateOpen
		c.successCount = 0
		c.lastStateChange = now
	case CircuitStateClosed:
		if c.failureCount >= p.failureThreshold {
			c.state = CircuitStateOpen
			c.lastStateChange = now
		}
	}
}

func (p *circuitBreakerPolicy) CheckAndGetState(key string, now time.Time) CircuitState {
	if !p.enabled {
		return CircuitStateClosed
	}

	p.mu.RLock()
	c, ok := p.circuits[key]
	p.mu.RUnlock()
	if !ok {
		return CircuitStateClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p.maybeHalfOpen(c, now)
	return c.state
}
