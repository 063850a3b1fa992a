package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config defines the token bucket parameters.
type Config struct {
	Capacity       int           `env:"RATELIMIT_CAPACITY" envDefault:"5"`
	RefillRate     int           `env:"RATELIMIT_REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"RATELIMIT_REFILL_INTERVAL" envDefault:"1m"`
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result contains the outcome of a rate limit check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the request may proceed.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before the next attempt.
// Returns 0 if the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Limiter checks whether a keyed action is within its limit.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

type state struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// Bucket is an in-memory token bucket limiter keyed by string.
type Bucket struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[string]*state

	sweepInterval time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once
}

// BucketOption configures a Bucket.
type BucketOption func(*Bucket)

// WithSweepInterval sets how often stale buckets are evicted.
// Set to 0 to disable the background sweep.
func WithSweepInterval(interval time.Duration) BucketOption {
	return func(b *Bucket) {
		b.sweepInterval = interval
	}
}

// NewBucket creates a token bucket limiter with the given configuration.
func NewBucket(cfg Config, opts ...BucketOption) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &Bucket{
		cfg:           cfg,
		buckets:       make(map[string]*state),
		sweepInterval: 5 * time.Minute,
		stopSweep:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.sweepInterval > 0 {
		go b.sweep()
	}

	return b, nil
}

// Allow consumes one token for the given key.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens for the given key.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	s, ok := b.buckets[key]
	if !ok {
		s = &state{tokens: b.cfg.Capacity, lastRefill: now}
		b.buckets[key] = s
	}

	// Cap intervals to prevent overflow with low refill rates
	elapsed := now.Sub(s.lastRefill)
	maxIntervals := int64(b.cfg.Capacity/b.cfg.RefillRate + 1)
	intervals := int(min(int64(elapsed/b.cfg.RefillInterval), maxIntervals))
	if intervals > 0 {
		s.tokens = min(s.tokens+intervals*b.cfg.RefillRate, b.cfg.Capacity)
		s.lastRefill = now
	}

	s.tokens -= n
	s.lastAccess = now

	return &Result{
		Limit:     b.cfg.Capacity,
		Remaining: s.tokens,
		ResetAt:   s.lastRefill.Add(b.cfg.RefillInterval),
	}, nil
}

// Reset clears the bucket for the given key.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.buckets, key)
	return nil
}

// Close stops the background sweep. Safe to call multiple times.
func (b *Bucket) Close() {
	b.stopOnce.Do(func() { close(b.stopSweep) })
}

func (b *Bucket) sweep() {
	ticker := time.NewTicker(b.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.evictStale()
		case <-b.stopSweep:
			return
		}
	}
}

func (b *Bucket) evictStale() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for key, s := range b.buckets {
		if now.Sub(s.lastAccess) > time.Hour {
			delete(b.buckets, key)
		}
	}
}
