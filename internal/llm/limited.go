package llm

import "context"

// Waiter blocks until a call under key may proceed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// RateLimitedProvider throttles calls to the wrapped provider
type RateLimitedProvider struct {
	inner  Provider
	waiter Waiter
}

// NewRateLimitedProvider wraps inner so that every Generate waits on w
// keyed by the provider name
func NewRateLimitedProvider(inner Provider, w Waiter) *RateLimitedProvider {
	return &RateLimitedProvider{inner: inner, waiter: w}
}

// Name returns the wrapped provider's name
func (p *RateLimitedProvider) Name() string {
	return p.inner.Name()
}

// IsAvailable delegates to the wrapped provider
func (p *RateLimitedProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

// Generate waits for a token then calls through
func (p *RateLimitedProvider) Generate(ctx context.Context, prompt string) (*Reply, error) {
	if err := p.waiter.Wait(ctx, p.inner.Name()); err != nil {
		return nil, err
	}
	return p.inner.Generate(ctx, prompt)
}
