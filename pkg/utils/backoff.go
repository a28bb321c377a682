package utils

import (
	"math"
	"time"
)

// Backoff kinds understood by BackoffFromConfig
const (
	BackoffConstant          = "constant"
	BackoffLinear            = "linear"
	BackoffExponential       = "exponential"
	BackoffExponentialJitter = "exponential_jitter"
)

// BackoffStrategy represents a retry backoff strategy
type BackoffStrategy interface {
	// NextDelay returns the delay for the given attempt number (0-indexed)
	NextDelay(attempt int) time.Duration
}

// ConstantBackoff implements a constant backoff strategy
type ConstantBackoff struct {
	Delay time.Duration
}

// NewConstantBackoff creates a new constant backoff strategy
func NewConstantBackoff(delay time.Duration) *ConstantBackoff {
	return &ConstantBackoff{Delay: delay}
}

// NextDelay returns the constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	return cb.Delay
}

// LinearBackoff implements a linear backoff strategy
type LinearBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewLinearBackoff creates a new linear backoff strategy
func NewLinearBackoff(baseDelay, maxDelay time.Duration) *LinearBackoff {
	return &LinearBackoff{
		BaseDelay: baseDelay,
		MaxDelay:  maxDelay,
	}
}

// NextDelay returns the linearly increasing delay
func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	delay := lb.BaseDelay * time.Duration(attempt+1)
	if delay > lb.MaxDelay {
		return lb.MaxDelay
	}
	return delay
}

// ExponentialBackoff implements an exponential backoff strategy
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Jitter     bool
}

// NewExponentialBackoff creates a new exponential backoff strategy
func NewExponentialBackoff(baseDelay, maxDelay time.Duration, multiplier float64, jitter bool) *ExponentialBackoff {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return &ExponentialBackoff{
		BaseDelay:  baseDelay,
		Multiplier: multiplier,
		MaxDelay:   maxDelay,
		Jitter:     jitter,
	}
}

// NextDelay returns the exponentially increasing delay
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt))

	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.Jitter {
		// random value between 0.5*delay and 1.5*delay
		delay *= 0.5 + Float64()
	}

	return time.Duration(delay)
}

// BackoffFromConfig creates a backoff strategy from config parameters.
// A zero maxDelay means 30s; unknown kinds fall back to plain exponential.
func BackoffFromConfig(kind string, baseDelay, maxDelay time.Duration) BackoffStrategy {
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	switch kind {
	case BackoffConstant:
		return NewConstantBackoff(baseDelay)
	case BackoffLinear:
		return NewLinearBackoff(baseDelay, maxDelay)
	case BackoffExponentialJitter:
		return NewExponentialBackoff(baseDelay, maxDelay, 2.0, true)
	default:
		return NewExponentialBackoff(baseDelay, maxDelay, 2.0, false)
	}
}

// Schedule lists the delays a strategy yields for the first n attempts.
func Schedule(s BackoffStrategy, n int) []time.Duration {
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.NextDelay(i))
	}
	return out
}
