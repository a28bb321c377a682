package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource is a thread-safe, seedable random number generator
type RandSource struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed int64
}

// NewRandSource creates a new random source with the given seed.
// A zero seed is replaced by the current time.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed the source was created with
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// SequenceSource replays a fixed list of draws, cycling when exhausted.
// It is used to replay a run or pin random outcomes.
type SequenceSource struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequenceSource creates a source that returns values in order.
// With no values it always returns 0.
func NewSequenceSource(values ...float64) *SequenceSource {
	cp := make([]float64, len(values))
	copy(cp, values)
	return &SequenceSource{values: cp}
}

// Float64 returns the next value of the sequence
func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws returns how many values have been consumed
func (s *SequenceSource) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Global default random source
var defaultRand = NewRandSource(0)

// Float64 returns a random float64 in [0.0, 1.0) from the default source
func Float64() float64 {
	return defaultRand.Float64()
}

// Int63 returns a non-negative pseudo-random seed value from the default source
func Int63() int64 {
	defaultRand.mu.Lock()
	defer defaultRand.mu.Unlock()
	return defaultRand.rng.Int63()
}
