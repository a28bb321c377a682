// Package advisor is the advisory text port of a session. It turns a state
// snapshot into a prompt, asks a text generation service for a short answer
// and degrades to a fixed apology when the service keeps failing.
package advisor

import (
	"context"
	"errors"
)

// FallbackText is returned when no advice could be generated
const FallbackText = "Sorry, the advisor is unavailable right now. Keep an eye on utilization and budget, and try again later."

var (
	// ErrEmptyResponse is returned by a generator that produced no text
	ErrEmptyResponse = errors.New("advisor returned empty text")
	// ErrCircuitOpen is returned while the advisor circuit is open
	ErrCircuitOpen = errors.New("advisor circuit is open")
)

// Advisor produces advice for a snapshot. Implementations never fail because
// the backing service is down; only cancellation of ctx is reported.
type Advisor interface {
	Advise(ctx context.Context, snap Snapshot) (string, error)
}

// Generator turns a prompt into text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
