package policy

import (
	"context"
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

// ErrNonRetryable marks failures that another attempt cannot fix
var ErrNonRetryable = errors.New("non-retryable failure")

// retryPolicy implements RetryPolicy
type retryPolicy struct {
	enabled    bool
	maxRetries int
	backoff    utils.BackoffStrategy
}

// NewRetryPolicyFromConfig creates a retry policy from the advisor config
func NewRetryPolicyFromConfig(cfg *config.AdvisorConfig) RetryPolicy {
	return &retryPolicy{
		enabled:    cfg.MaxRetries > 0,
		maxRetries: cfg.MaxRetries,
		backoff:    utils.BackoffFromConfig(cfg.Backoff, cfg.BaseDelay, cfg.MaxDelay),
	}
}

// NewRetryPolicy creates a retry policy with explicit parameters
func NewRetryPolicy(enabled bool, maxRetries int, backoff utils.BackoffStrategy) RetryPolicy {
	return &retryPolicy{
		enabled:    enabled,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (p *retryPolicy) Enabled() bool {
	return p.enabled
}

func (p *retryPolicy) Name() string {
	return "retry"
}

func (p *retryPolicy) ShouldRetry(attempt int, err error) bool {
	if !p.enabled {
		return false
	}
	if attempt >= p.maxRetries {
		return false
	}
	// Caller cancellation is final
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNonRetryable) {
		return false
	}
	return err != nil
}

// GetBackoffDuration returns the wait before retry number attempt (1-based)
func (p *retryPolicy) GetBackoffDuration(attempt int) time.Duration {
	if !p.enabled || attempt <= 0 || p.backoff == nil {
		return 0
	}
	return p.backoff.NextDelay(attempt - 1)
}

func (p *retryPolicy) GetMaxRetries() int {
	return p.maxRetries
}
