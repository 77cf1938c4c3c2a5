package ratelimit

import (
	"context"
	"sync"

	"igosint/pkg/config"
)

// Registry hands out one limiter per endpoint name. Endpoints without an
// override share the default bucket.
type Registry struct {
	mu        sync.Mutex
	shared    Limiter
	overrides map[string]int
	burst     int
	limiters  map[string]Limiter
}

// NewRegistry builds a Registry from the rate limit configuration
func NewRegistry(cfg config.RateLimitConfig) *Registry {
	overrides := make(map[string]int, len(cfg.Endpoints))
	for name, rpm := range cfg.Endpoints {
		overrides[name] = rpm
	}
	return &Registry{
		shared:    NewTokenBucket(cfg.BurstSize, cfg.RequestsPerMinute),
		overrides: overrides,
		burst:     cfg.BurstSize,
		limiters:  make(map[string]Limiter),
	}
}

// For returns the limiter governing endpoint
func (r *Registry) For(endpoint string) Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[endpoint]; ok {
		return l
	}
	rpm, ok := r.overrides[endpoint]
	if !ok {
		return r.shared
	}
	burst := r.burst
	if rpm < burst {
		burst = rpm
	}
	l := NewTokenBucket(burst, rpm)
	r.limiters[endpoint] = l
	return l
}

// Wait blocks on both the shared limiter and the endpoint's own limiter
func (r *Registry) Wait(ctx context.Context, endpoint string) error {
	if err := r.shared.Wait(ctx); err != nil {
		return err
	}
	l := r.For(endpoint)
	if l == r.shared {
		return nil
	}
	return l.Wait(ctx)
}

// Reset resets every limiter in the registry
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shared.Reset()
	for _, l := range r.limiters {
		l.Reset()
	}
}
