// Package config loads endpoint sets and failover defaults from HCL or YAML files.
package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alternatefutures/package-cloud-sdk/endpoints"
	"github.com/alternatefutures/package-cloud-sdk/failover"
)

// Backoff strategies accepted by the failover block.
const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// File is the decoded configuration file.
//
//	failover {
//	  max_retries = 2
//	  retry_delay = "500ms"
//	}
//
//	set "ipfs" {
//	  endpoint {
//	    url      = "https://ipfs.alternatefutures.ai"
//	    priority = 1
//	    timeout  = "10s"
//	  }
//	}
type File struct {
	Failover *Failover `hcl:"failover,block" mapstructure:"failover"`
	Remote   *Remote   `hcl:"remote,block" mapstructure:"remote"`
	Sets     []Set     `hcl:"set,block" mapstructure:"sets"`

	// NoDefaults disables the built-in endpoint sets for names not listed in Sets.
	NoDefaults bool `hcl:"no_defaults,optional" mapstructure:"no_defaults"`

	providerOnce sync.Once
	provider     endpoints.Provider
	providerErr  error
}

// Failover holds invocation defaults applied to every set.
type Failover struct {
	MaxRetries int    `hcl:"max_retries,optional" mapstructure:"max_retries"`
	RetryDelay string `hcl:"retry_delay,optional" mapstructure:"retry_delay"`

	// Backoff is "constant" (default) or "exponential". Exponential starts at
	// RetryDelay and is capped at MaxDelay.
	Backoff  string `hcl:"backoff,optional" mapstructure:"backoff"`
	MaxDelay string `hcl:"max_delay,optional" mapstructure:"max_delay"`
}

// Remote configures an HTTP-published endpoint catalogue.
type Remote struct {
	Mirrors       []string `hcl:"mirrors" mapstructure:"mirrors"`
	Path          string   `hcl:"path,optional" mapstructure:"path"`
	CacheTTL      string   `hcl:"cache_ttl,optional" mapstructure:"cache_ttl"`
	NegativeTTL   string   `hcl:"negative_cache_ttl,optional" mapstructure:"negative_cache_ttl"`
	MirrorTimeout string   `hcl:"mirror_timeout,optional" mapstructure:"mirror_timeout"`
}

// Set is a named, ranked endpoint list.
type Set struct {
	Name      string     `hcl:"name,label" mapstructure:"name"`
	Endpoints []Endpoint `hcl:"endpoint,block" mapstructure:"endpoints"`
}

// Endpoint is one entry of a Set.
type Endpoint struct {
	URL      string `hcl:"url" mapstructure:"url"`
	Priority int    `hcl:"priority,optional" mapstructure:"priority"`
	Timeout  string `hcl:"timeout,optional" mapstructure:"timeout"`
}

// ConfigOptions converts the failover block into failover.ConfigOption values.
// Call Validate first; malformed durations are reported here as well.
func (f *File) ConfigOptions() ([]failover.ConfigOption, error) {
	if f == nil || f.Failover == nil {
		return nil, nil
	}
	fo := f.Failover

	var opts []failover.ConfigOption
	if fo.MaxRetries > 0 {
		opts = append(opts, failover.MaxRetries(fo.MaxRetries))
	}

	delay := failover.DefaultRetryDelay
	if fo.RetryDelay != "" {
		d, err := parseDuration(fo.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("config: retry_delay: %w", err)
		}
		delay = d
		opts = append(opts, failover.RetryDelay(d))
	}

	if fo.Backoff == BackoffExponential {
		maxDelay, err := parseDuration(fo.MaxDelay)
		if err != nil {
			return nil, fmt.Errorf("config: max_delay: %w", err)
		}
		if maxDelay == 0 {
			maxDelay = 30 * time.Second
		}
		opts = append(opts, failover.ExponentialBackoff(delay, maxDelay))
	}
	return opts, nil
}

// StaticProvider returns a provider serving the sets declared in the file.
func (f *File) StaticProvider() (*endpoints.StaticProvider, error) {
	p := &endpoints.StaticProvider{Sets: make(map[string][]failover.Endpoint)}
	if f == nil {
		return p, nil
	}
	p.NoDefaults = f.NoDefaults

	for _, s := range f.Sets {
		eps := make([]failover.Endpoint, 0, len(s.Endpoints))
		for _, e := range s.Endpoints {
			timeout, err := parseDuration(e.Timeout)
			if err != nil {
				return nil, fmt.Errorf("config: set %q: endpoint %q: timeout: %w", s.Name, e.URL, err)
			}
			eps = append(eps, failover.Endpoint{
				URL:      strings.TrimSpace(e.URL),
				Priority: e.Priority,
				Timeout:  timeout,
			})
		}
		p.Sets[s.Name] = eps
	}
	return p, nil
}

// Provider returns the endpoint provider described by the file: a cached
// RemoteProvider when a remote block is present, otherwise a StaticProvider.
// Each call builds a new provider with an empty cache.
func (f *File) Provider(logger hclog.Logger) (endpoints.Provider, error) {
	static, err := f.StaticProvider()
	if err != nil {
		return nil, err
	}
	if f == nil || f.Remote == nil {
		return static, nil
	}
	r := f.Remote

	mirrorTimeout, err := parseDuration(r.MirrorTimeout)
	if err != nil {
		return nil, fmt.Errorf("config: remote: mirror_timeout: %w", err)
	}
	mirrors := make([]failover.Endpoint, 0, len(r.Mirrors))
	for i, m := range r.Mirrors {
		mirrors = append(mirrors, failover.Endpoint{URL: strings.TrimSpace(m), Priority: i, Timeout: mirrorTimeout})
	}

	var opts []endpoints.RemoteProviderOption
	if logger != nil {
		opts = append(opts, endpoints.WithLogger(logger))
	}
	if r.CacheTTL != "" {
		d, err := parseDuration(r.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("config: remote: cache_ttl: %w", err)
		}
		opts = append(opts, endpoints.WithCacheTTL(d))
	}
	if r.NegativeTTL != "" {
		d, err := parseDuration(r.NegativeTTL)
		if err != nil {
			return nil, fmt.Errorf("config: remote: negative_cache_ttl: %w", err)
		}
		opts = append(opts, endpoints.WithNegativeCacheTTL(d))
	}

	source := &endpoints.HTTPSource{
		Mirrors: failover.NewConfig(mirrors, failover.RetryDelay(0)),
		Path:    r.Path,
	}
	return &fallbackProvider{
		primary:  endpoints.NewRemoteProvider(source, opts...),
		fallback: static,
	}, nil
}

// ConfigFor resolves set through the file's provider and applies the failover block.
// The provider is built on the first call, with that call's logger, and reused
// afterwards so the remote catalogue cache spans calls.
func (f *File) ConfigFor(ctx context.Context, set string, logger hclog.Logger) (failover.Config, error) {
	p, err := f.sharedProvider(logger)
	if err != nil {
		return failover.Config{}, err
	}
	opts, err := f.ConfigOptions()
	if err != nil {
		return failover.Config{}, err
	}
	return endpoints.ConfigFor(ctx, p, set, opts...)
}

func (f *File) sharedProvider(logger hclog.Logger) (endpoints.Provider, error) {
	if f == nil {
		return f.Provider(logger)
	}
	f.providerOnce.Do(func() {
		f.provider, f.providerErr = f.Provider(logger)
	})
	return f.provider, f.providerErr
}

// fallbackProvider serves locally declared sets when the remote catalogue
// cannot be reached at all.
type fallbackProvider struct {
	primary  endpoints.Provider
	fallback endpoints.Provider
}

func (p *fallbackProvider) Endpoints(ctx context.Context, set string) ([]failover.Endpoint, error) {
	eps, err := p.primary.Endpoints(ctx, set)
	if err == nil {
		return eps, nil
	}
	if eps, ferr := p.fallback.Endpoints(ctx, set); ferr == nil {
		return eps, nil
	}
	return nil, err
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
