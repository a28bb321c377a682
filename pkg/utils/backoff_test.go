package utils

import (
	"testing"
	"time"
)

func TestConstantBackoff(t *testing.T) {
	delay := 100 * time.Millisecond
	backoff := NewConstantBackoff(delay)

	for i := 0; i < 10; i++ {
		if got := backoff.NextDelay(i); got != delay {
			t.Errorf("Attempt %d: expected %v, got %v", i, delay, got)
		}
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := NewLinearBackoff(100*time.Millisecond, time.Second)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{9, 1000 * time.Millisecond},
		{20, 1000 * time.Millisecond}, // capped at max
	}

	for _, tt := range tests {
		if delay := backoff.NextDelay(tt.attempt); delay != tt.expected {
			t.Errorf("Attempt %d: expected %v, got %v", tt.attempt, tt.expected, delay)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := NewExponentialBackoff(time.Second, 30*time.Second, 2.0, false)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // capped at max
	}

	for _, tt := range tests {
		if delay := backoff.NextDelay(tt.attempt); delay != tt.expected {
			t.Errorf("Attempt %d: expected %v, got %v", tt.attempt, tt.expected, delay)
		}
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	baseDelay := 100 * time.Millisecond
	maxDelay := 10 * time.Second
	backoff := NewExponentialBackoff(baseDelay, maxDelay, 2.0, true)

	for attempt := 0; attempt < 5; attempt++ {
		delay := backoff.NextDelay(attempt)

		expectedBase := float64(baseDelay) * float64(uint(1)<<uint(attempt))
		minExpected := time.Duration(expectedBase * 0.5)
		maxExpected := time.Duration(expectedBase * 1.5)

		if delay < minExpected || delay > maxExpected {
			t.Errorf("Attempt %d: delay %v outside expected range [%v, %v]",
				attempt, delay, minExpected, maxExpected)
		}
	}
}

func TestExponentialBackoffDefaultMultiplier(t *testing.T) {
	backoff := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 0, false)

	if delay := backoff.NextDelay(1); delay != 200*time.Millisecond {
		t.Errorf("With default multiplier, attempt 1 should give 200ms, got %v", delay)
	}
}

func TestBackoffFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		base      time.Duration
		max       time.Duration
		attempt   int
		checkFunc func(time.Duration) bool
	}{
		{
			name: "Constant backoff", kind: BackoffConstant, base: 100 * time.Millisecond, max: time.Second, attempt: 5,
			checkFunc: func(d time.Duration) bool { return d == 100*time.Millisecond },
		},
		{
			name: "Linear backoff", kind: BackoffLinear, base: 100 * time.Millisecond, max: time.Second, attempt: 2,
			checkFunc: func(d time.Duration) bool { return d == 300*time.Millisecond },
		},
		{
			name: "Exponential backoff is exact", kind: BackoffExponential, base: time.Second, max: 16 * time.Second, attempt: 4,
			checkFunc: func(d time.Duration) bool { return d == 16*time.Second },
		},
		{
			name: "Exponential with jitter", kind: BackoffExponentialJitter, base: 100 * time.Millisecond, max: 10 * time.Second, attempt: 0,
			checkFunc: func(d time.Duration) bool { return d >= 50*time.Millisecond && d <= 150*time.Millisecond },
		},
		{
			name: "Unknown kind is exponential", kind: "unknown", base: 100 * time.Millisecond, max: 10 * time.Second, attempt: 1,
			checkFunc: func(d time.Duration) bool { return d == 200*time.Millisecond },
		},
		{
			name: "Zero max defaults to 30s", kind: BackoffExponential, base: 10 * time.Second, max: 0, attempt: 3,
			checkFunc: func(d time.Duration) bool { return d == 30*time.Second },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backoff := BackoffFromConfig(tt.kind, tt.base, tt.max)
			if backoff == nil {
				t.Fatal("BackoffFromConfig returned nil")
			}
			if delay := backoff.NextDelay(tt.attempt); !tt.checkFunc(delay) {
				t.Errorf("Delay %v failed check function", delay)
			}
		})
	}
}

func TestSchedule(t *testing.T) {
	got := Schedule(NewExponentialBackoff(time.Second, time.Minute, 2, false), 5)
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("expected %d delays, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
