package advisor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/policy"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
)

// breakerKey is the circuit key for the single upstream service
const breakerKey = "advisor"

// Service is the resilient Advisor: it retries a Generator with backoff,
// stops early while the circuit is open and falls back to FallbackText.
type Service struct {
	gen     Generator
	retry   policy.RetryPolicy
	breaker policy.CircuitBreakerPolicy
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	log     *slog.Logger
}

// NewService wraps gen. retry and breaker may be nil.
func NewService(gen Generator, retry policy.RetryPolicy, breaker policy.CircuitBreakerPolicy) *Service {
	return &Service{
		gen:     gen,
		retry:   retry,
		breaker: breaker,
		now:     time.Now,
		sleep:   sleepContext,
		log:     logger.With("component", "advisor"),
	}
}

// NewServiceFromPolicies wraps gen with the advisor policies of pm
func NewServiceFromPolicies(gen Generator, pm *policy.Manager) *Service {
	return NewService(gen, pm.GetRetry(), pm.GetCircuitBreaker())
}

// FromConfig returns the HTTP backed service when the advisor is enabled,
// and the offline Heuristic otherwise.
func FromConfig(cfg config.AdvisorConfig, pm *policy.Manager) Advisor {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return Heuristic{}
	}
	return NewServiceFromPolicies(NewHTTPGenerator(cfg), pm)
}

// SetLogger replaces the service logger
func (s *Service) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// Advise builds the prompt for snap and generates advice for it
func (s *Service) Advise(ctx context.Context, snap Snapshot) (string, error) {
	return s.Ask(ctx, BuildPrompt(snap))
}

// Ask generates text for prompt. Service failures end in FallbackText with a
// nil error; only the caller's cancellation is returned as an error.
func (s *Service) Ask(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := s.retry.GetBackoffDuration(attempt)
			s.log.Debug("retrying advisor request", "attempt", attempt+1, "delay", delay, "error", lastErr)
			if err := s.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		if s.breaker != nil && !s.breaker.AllowRequest(breakerKey, s.now()) {
			lastErr = ErrCircuitOpen
			break
		}

		text, err := s.gen.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			if s.breaker != nil {
				s.breaker.RecordSuccess(breakerKey, s.now())
			}
			return strings.TrimSpace(text), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}

		lastErr = err
		if s.breaker != nil {
			s.breaker.RecordFailure(breakerKey, s.now())
		}
		s.log.Warn("advisor attempt failed", "attempt", attempt+1, "error", err)

		if s.retry == nil || !s.retry.ShouldRetry(attempt, err) {
			break
		}
	}

	s.log.Error("advisor unavailable, using fallback", "last_error", lastErr)
	return FallbackText, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
