package endpoints

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alternatefutures/package-cloud-sdk/failover"
)

// Source fetches raw endpoint sets.
type Source interface {
	// FetchSet returns the endpoints of set, or an error wrapping ErrSetNotFound.
	FetchSet(ctx context.Context, set string) ([]failover.Endpoint, error)
}

// RemoteProvider is a Provider that fetches sets from a Source and caches them.
//
// When the Source fails with anything other than ErrSetNotFound, the last known
// good set is served if one was ever cached.
type RemoteProvider struct {
	source           Source
	cache            *Cache
	cacheTTL         time.Duration
	negativeCacheTTL time.Duration
	logger           hclog.Logger
}

// RemoteProviderOption configures a RemoteProvider.
type RemoteProviderOption func(*RemoteProvider)

// WithCacheTTL sets the TTL for fetched sets. Default is 5 minutes.
func WithCacheTTL(ttl time.Duration) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.cacheTTL = ttl
	}
}

// WithNegativeCacheTTL sets the TTL for missing sets. Default is 30 seconds.
func WithNegativeCacheTTL(ttl time.Duration) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.negativeCacheTTL = ttl
	}
}

// WithLogger sets the logger used to report stale fallbacks.
func WithLogger(l hclog.Logger) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.logger = l
	}
}

// NewRemoteProvider creates a RemoteProvider over source.
func NewRemoteProvider(source Source, opts ...RemoteProviderOption) *RemoteProvider {
	p := &RemoteProvider{
		source:           source,
		cache:            NewCache(),
		cacheTTL:         5 * time.Minute,
		negativeCacheTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = hclog.NewNullLogger()
	}
	p.logger = p.logger.Named("endpoints")
	return p
}

// Endpoints returns set, checking the cache first.
func (p *RemoteProvider) Endpoints(ctx context.Context, set string) ([]failover.Endpoint, error) {
	if p == nil || p.source == nil {
		return nil, ErrProviderUnavailable
	}

	eps, ok, negative := p.cache.Get(set)
	if ok {
		if negative {
			return nil, fmt.Errorf("%w: %q", ErrSetNotFound, set)
		}
		return eps, nil
	}

	eps, err := p.source.FetchSet(ctx, set)
	if err != nil {
		if errors.Is(err, ErrSetNotFound) {
			p.cache.SetMissing(set, p.negativeCacheTTL)
			return nil, err
		}
		if stale, ok := p.cache.Stale(set); ok {
			p.logger.Warn("serving stale endpoint set", "set", set, "error", err)
			return stale, nil
		}
		return nil, err
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("%w: set %q is empty", ErrFetchFailed, set)
	}
	if err := (failover.Config{Endpoints: eps}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: set %q: %w", ErrFetchFailed, set, err)
	}

	p.cache.Set(set, eps, p.cacheTTL)
	return clone(eps), nil
}
