package policy

import (
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
)

// Policy represents a generic policy interface
type Policy interface {
	// Enabled returns whether the policy is enabled
	Enabled() bool
	// Name returns the policy name for identification
	Name() string
}

// ScalingPolicy decides when a headless player should buy the next tier
type ScalingPolicy interface {
	Policy
	// ShouldScaleUp determines if the run should upgrade now
	ShouldScaleUp(sig ScalingSignal) bool
}

// ScalingSignal is what the scaling policy sees of a run
type ScalingSignal struct {
	Utilization          float64 // effective utilization now
	ProjectedUtilization float64 // after next round's growth
	Budget               int
	UpgradeCost          int
	NextMaintenance      int // maintenance per round on the next tier
	RoundsLeft           int
	Down                 bool
	HasNextTier          bool
}

// RateLimitingPolicy throttles requests per key
type RateLimitingPolicy interface {
	Policy
	// AllowRequest checks if a request should be allowed based on rate limits
	AllowRequest(key string, requestTime time.Time) bool
	// GetRemainingQuota returns the remaining quota for a key
	GetRemainingQuota(key string, now time.Time) int
	// Forget drops any state kept for key
	Forget(key string)
}

// RetryPolicy handles retry logic for failed requests
type RetryPolicy interface {
	Policy
	// ShouldRetry determines if a request should be retried
	ShouldRetry(attempt int, err error) bool
	// GetBackoffDuration calculates the backoff duration for a retry attempt
	GetBackoffDuration(attempt int) time.Duration
	// GetMaxRetries returns the maximum number of retries allowed
	GetMaxRetries() int
}

// CircuitBreakerPolicy handles circuit breaker logic
type CircuitBreakerPolicy interface {
	Policy
	// AllowRequest checks if a request should be allowed (circuit not open)
	AllowRequest(key string, now time.Time) bool
	// RecordSuccess records a successful request
	RecordSuccess(key string, now time.Time)
	// RecordFailure records a failed request
	RecordFailure(key string, now time.Time)
	// CheckAndGetState returns the current state, moving open circuits to half-open after the cooldown
	CheckAndGetState(key string, now time.Time) CircuitState
}

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"   // Normal operation
	CircuitStateOpen     CircuitState = "open"     // Failing, rejecting requests
	CircuitStateHalfOpen CircuitState = "halfopen" // Testing if service recovered
)

// Manager manages all active policies
type Manager struct {
	scaling        ScalingPolicy
	rateLimiting   RateLimitingPolicy
	retry          RetryPolicy
	circuitBreaker CircuitBreakerPolicy
}

// NewPolicyManager creates a new policy manager from configuration
func NewPolicyManager(cfg *config.ServerConfig) *Manager {
	pm := &Manager{}
	if cfg == nil {
		return pm
	}

	adv := cfg.Advisor
	pm.retry = NewRetryPolicyFromConfig(&adv)
	if adv.FailureThreshold > 0 {
		pm.circuitBreaker = NewCircuitBreakerPolicy(true, adv.FailureThreshold, 1, adv.Cooldown)
	}
	if adv.RequestsPerMinute > 0 {
		pm.rateLimiting = NewRateLimitingPolicy(true, adv.RequestsPerMinute)
	}
	pm.scaling = NewAutoscalingPolicyFromConfig(&cfg.Autopilot)

	return pm
}

// GetScaling returns the scaling policy if enabled
func (pm *Manager) GetScaling() ScalingPolicy {
	return pm.scaling
}

// GetRateLimiting returns the rate limiting policy if enabled
func (pm *Manager) GetRateLimiting() RateLimitingPolicy {
	return pm.rateLimiting
}

// GetRetry returns the retry policy if enabled
func (pm *Manager) GetRetry() RetryPolicy {
	return pm.retry
}

// GetCircuitBreaker returns the circuit breaker policy if enabled
func (pm *Manager) GetCircuitBreaker() CircuitBreakerPolicy {
	return pm.circuitBreaker
}
