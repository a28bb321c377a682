package policy

import (
	"sync"
	"time"
)

// rateLimitingPolicy implements RateLimitingPolicy using token bucket algorithm
type rateLimitingPolicy struct {
	enabled bool
	// perMinute is the maximum requests per minute per key
	perMinute int
	// buckets tracks token buckets per key
	buckets map[string]*tokenBucket
	mu      sync.RWMutex
}

// tokenBucket implements a simple token bucket for rate limiting
type tokenBucket struct {
	capacity   float64   // Maximum tokens
	tokens     float64   // Current tokens
	refillRate float64   // Tokens per second
	lastRefill time.Time // Last time tokens were refilled
	mu         sync.Mutex
}

// NewRateLimitingPolicy creates a new rate limiting policy allowing perMinute requests per key
func NewRateLimitingPolicy(enabled bool, perMinute int) RateLimitingPolicy {
	return &rateLimitingPolicy{
		enabled:   enabled,
		perMinute: perMinute,
		buckets:   make(map[string]*tokenBucket),
	}
}

func (p *rateLimitingPolicy) Enabled() bool {
	return p.enabled
}

func (p *rateLimitingPolicy) Name() string {
	return "rate_limiting"
}

func (p *rateLimitingPolicy) bucket(key string, now time.Time) *tokenBucket {
	p.mu.RLock()
	b, ok := p.buckets[key]
	p.mu.RUnlock()
	if ok {
		return b
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double-check after acquiring write lock
	if b, ok = p.buckets[key]; !ok {
		b = &tokenBucket{
			capacity:   float64(p.perMinute),
			tokens:     float64(p.perMinute),
			refillRate: float64(p.perMinute) / 60,
			lastRefill: now,
		}
		p.buckets[key] = b
	}
	return b
}

// refill adds tokens for the time elapsed. Caller holds b.mu.
func (b *tokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed.Seconds() * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

func (p *rateLimitingPolicy) AllowRequest(key string, requestTime time.Time) bool {
	if !p.enabled {
		return true
	}

	b := p.bucket(key, requestTime)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(requestTime)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (p *rateLimitingPolicy) GetRemainingQuota(key string, now time.Time) int {
	if !p.enabled {
		return -1 // Unlimited
	}

	p.mu.RLock()
	b, ok := p.buckets[key]
	p.mu.RUnlock()
	if !ok {
		return p.perMinute
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	return int(b.tokens)
}

// Forget drops the bucket of key
func (p *rateLimitingPolicy) Forget(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.buckets, key)
}
