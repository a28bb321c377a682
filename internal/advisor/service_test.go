package advisor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/policy"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

// newTestService returns a service whose sleeps are recorded, not slept
func newTestService(gen Generator, retry policy.RetryPolicy, breaker policy.CircuitBreakerPolicy) (*Service, *[]time.Duration) {
	s := NewService(gen, retry, breaker)
	var slept []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return s, &slept
}

func defaultRetry() policy.RetryPolicy {
	cfg := config.DefaultServerConfig().Advisor
	return policy.NewRetryPolicyFromConfig(&cfg)
}

func TestServiceSucceedsFirstTry(t *testing.T) {
	var calls int32
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "  Upgrade now.  ", nil
	})
	s, slept := newTestService(gen, defaultRetry(), nil)

	text, err := s.Ask(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Upgrade now." {
		t.Errorf("expected trimmed text, got %q", text)
	}
	if calls != 1 || len(*slept) != 0 {
		t.Errorf("expected one call without sleeping, got %d calls, %v sleeps", calls, *slept)
	}
}

func TestServiceRetriesThenSucceeds(t *testing.T) {
	var calls int
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 from upstream")
		}
		return "Restart the server.", nil
	})
	s, slept := newTestService(gen, defaultRetry(), nil)

	text, err := s.Ask(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Restart the server." {
		t.Errorf("unexpected text %q", text)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if !reflect.DeepEqual(*slept, want) {
		t.Errorf("expected sleeps %v, got %v", want, *slept)
	}
}

func TestServiceFallsBackAfterRetries(t *testing.T) {
	var calls int
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", errors.New("connection refused")
	})
	s, slept := newTestService(gen, defaultRetry(), nil)

	text, err := s.Ask(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("service failure must not surface as an error, got %v", err)
	}
	if text != FallbackText {
		t.Errorf("expected fallback text, got %q", text)
	}
	if calls != 6 {
		t.Errorf("expected 1 attempt plus 5 retries, got %d calls", calls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	if !reflect.DeepEqual(*slept, want) {
		t.Errorf("expected backoff %v, got %v", want, *slept)
	}
}

func TestServiceEmptyTextIsAFailure(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "   ", nil
	})
	s, _ := newTestService(gen, policy.NewRetryPolicy(true, 1, utils.NewConstantBackoff(time.Millisecond)), nil)

	text, err := s.Ask(context.Background(), "prompt")
	if err != nil || text != FallbackText {
		t.Fatalf("expected fallback for blank text, got %q, %v", text, err)
	}
}

func TestServiceStopsOnNonRetryable(t *testing.T) {
	var calls int
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", fmt.Errorf("%w: status 401", policy.ErrNonRetryable)
	})
	s, slept := newTestService(gen, defaultRetry(), nil)

	if text, _ := s.Ask(context.Background(), "prompt"); text != FallbackText {
		t.Errorf("expected fallback, got %q", text)
	}
	if calls != 1 || len(*slept) != 0 {
		t.Errorf("expected a single attempt, got %d calls and sleeps %v", calls, *slept)
	}
}

func TestServiceCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		cancel()
		return "", errors.New("upstream hiccup")
	})
	s, _ := newTestService(gen, defaultRetry(), nil)

	text, err := s.Ask(ctx, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if text != "" {
		t.Errorf("expected no text on cancellation, got %q", text)
	}
}

func TestServiceCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream hiccup")
	})
	s := NewService(gen, policy.NewRetryPolicy(true, 3, utils.NewConstantBackoff(time.Hour)), nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Ask(ctx, "prompt")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Ask did not return after cancellation")
	}
}

func TestServiceCircuitBreaker(t *testing.T) {
	var calls int
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", errors.New("down")
	})
	breaker := policy.NewCircuitBreakerPolicy(true, 2, 1, time.Minute)
	s, _ := newTestService(gen, policy.NewRetryPolicy(false, 0, nil), breaker)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if text, _ := s.Ask(context.Background(), "prompt"); text != FallbackText {
			t.Fatalf("call %d: expected fallback, got %q", i, text)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 upstream calls before the circuit opens, got %d", calls)
	}

	// Open circuit: no upstream call
	if text, _ := s.Ask(context.Background(), "prompt"); text != FallbackText {
		t.Fatalf("expected fallback while open, got %q", text)
	}
	if calls != 2 {
		t.Fatalf("expected no upstream call while the circuit is open, got %d", calls)
	}

	// After the cooldown one trial call goes through and closes the circuit
	now = now.Add(2 * time.Minute)
	s.gen = GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "Back online.", nil
	})
	if text, _ := s.Ask(context.Background(), "prompt"); text != "Back online." {
		t.Fatalf("expected recovered text, got %q", text)
	}
	if got := breaker.CheckAndGetState(breakerKey, now); got != policy.CircuitStateClosed {
		t.Errorf("expected closed circuit after success, got %s", got)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultServerConfig()
	pm := policy.NewPolicyManager(cfg)

	if _, ok := FromConfig(cfg.Advisor, pm).(Heuristic); !ok {
		t.Errorf("expected heuristic advisor when disabled")
	}

	cfg.Advisor.Enabled = true
	cfg.Advisor.Endpoint = "http://localhost:9999/generate"
	if _, ok := FromConfig(cfg.Advisor, pm).(*Service); !ok {
		t.Errorf("expected service when enabled with an endpoint")
	}
}
