package llm

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ppiankov/cvtriage/internal/cache"
	"github.com/ppiankov/cvtriage/internal/recovery"
)

// CachedProvider memoizes replies by (provider, model, prompt).
// Only replies that carry a recoverable object are stored, so a bad
// answer is retried on the next run instead of being replayed.
type CachedProvider struct {
	inner Provider
	cache cache.Cache
	model string
}

// NewCachedProvider wraps inner with c
func NewCachedProvider(inner Provider, c cache.Cache, model string) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c, model: model}
}

// Name returns the wrapped provider's name
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// IsAvailable delegates to the wrapped provider
func (p *CachedProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

// Generate returns a cached reply when present, otherwise calls through
func (p *CachedProvider) Generate(ctx context.Context, prompt string) (*Reply, error) {
	key := cache.CacheKey(p.inner.Name(), p.model, prompt)

	if data, ok := p.cache.Get(key); ok {
		var reply Reply
		if err := json.Unmarshal(data, &reply); err == nil {
			slog.Debug("llm.cache.hit", "provider", p.inner.Name())
			return &reply, nil
		}
		_ = p.cache.Delete(key)
	}

	reply, err := p.inner.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if _, ok := recovery.Recover(reply.Stdout); ok {
		data, err := json.Marshal(reply)
		if err == nil {
			if err := p.cache.Set(key, data, 0); err != nil {
				slog.Warn("llm.cache.write_failed", "error", err)
			}
		}
	}

	return reply, nil
}
