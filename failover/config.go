package failover

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
)

const (
	// DefaultMaxRetries is the number of attempts per endpoint when Config.MaxRetries is unset.
	DefaultMaxRetries = 1

	// DefaultRetryDelay is the delay NewConfig applies between retries on the same endpoint.
	DefaultRetryDelay = time.Second
)

// Endpoint is a candidate destination for a unit of work.
type Endpoint struct {
	// URL identifies the endpoint. It is passed verbatim to the unit of work.
	URL string

	// Priority orders endpoints; lower values are tried first. Ties keep input order.
	Priority int

	// Timeout bounds each attempt against this endpoint. Zero means no deadline.
	Timeout time.Duration
}

// FailureFunc is invoked once per failed attempt with the endpoint URL and the
// attempt error. It cannot influence control flow; panics are recovered.
type FailureFunc func(endpoint string, err error)

// BackoffFactory returns the delay schedule used between retries on a single
// endpoint. It is called once per endpoint, so stateful schedules restart on failover.
type BackoffFactory func() backoff.BackOff

// Config is supplied per invocation.
type Config struct {
	Endpoints []Endpoint

	// MaxRetries is the number of attempts per endpoint. Zero means DefaultMaxRetries.
	MaxRetries int

	// RetryDelay is waited between retries on the same endpoint, never between endpoints.
	RetryDelay time.Duration

	OnFailover FailureFunc

	// Backoff overrides RetryDelay with a custom schedule. Returning backoff.Stop
	// ends retries on the current endpoint early.
	Backoff BackoffFactory

	// explicitRetries is set by the MaxRetries option, where zero is not "unset".
	explicitRetries bool
}

// ConfigOption configures a Config built by NewConfig.
type ConfigOption func(*Config)

// NewConfig returns a Config for endpoints with DefaultMaxRetries and DefaultRetryDelay applied.
func NewConfig(endpoints []Endpoint, opts ...ConfigOption) Config {
	cfg := Config{
		Endpoints:  endpoints,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// MaxRetries sets the number of attempts per endpoint. Values below 1 fail Validate.
func MaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = n
		c.explicitRetries = true
	}
}

// RetryDelay sets the delay between retries on the same endpoint.
func RetryDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// OnFailover sets the per-failure callback.
func OnFailover(fn FailureFunc) ConfigOption {
	return func(c *Config) {
		c.OnFailover = fn
	}
}

// Backoff sets a custom retry schedule.
func Backoff(f BackoffFactory) ConfigOption {
	return func(c *Config) {
		c.Backoff = f
	}
}

// ExponentialBackoff retries each endpoint with delays growing from initial up to max.
func ExponentialBackoff(initial, max time.Duration) ConfigOption {
	return Backoff(func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = max
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	})
}

// Validate reports every problem with c as a single *ConfigurationError.
func (c Config) Validate() error {
	var result *multierror.Error

	if len(c.Endpoints) == 0 {
		result = multierror.Append(result, errors.New("at least one endpoint is required"))
	}
	if c.MaxRetries < 0 || (c.explicitRetries && c.MaxRetries < 1) {
		result = multierror.Append(result, fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries))
	}
	if c.RetryDelay < 0 {
		result = multierror.Append(result, fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay))
	}
	for i, ep := range c.Endpoints {
		if strings.TrimSpace(ep.URL) == "" {
			result = multierror.Append(result, fmt.Errorf("endpoint %d: url is required", i))
		}
		if ep.Timeout < 0 {
			result = multierror.Append(result, fmt.Errorf("endpoint %q: timeout must not be negative, got %s", ep.URL, ep.Timeout))
		}
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = joinErrors
	return &ConfigurationError{Err: result}
}

func (c Config) maxRetries() int {
	if c.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

func (c Config) newBackoff() backoff.BackOff {
	if c.Backoff != nil {
		if b := c.Backoff(); b != nil {
			b.Reset()
			return b
		}
	}
	return backoff.NewConstantBackOff(c.RetryDelay)
}

// SortEndpoints returns a copy of endpoints in try order: ascending priority,
// input order preserved among equal priorities.
func SortEndpoints(endpoints []Endpoint) []Endpoint {
	sorted := slices.Clone(endpoints)
	slices.SortStableFunc(sorted, func(a, b Endpoint) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return sorted
}

func joinErrors(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
