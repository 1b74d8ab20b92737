package endpoints

import (
	"context"
	"fmt"
	"strings"

	"github.com/alternatefutures/package-cloud-sdk/failover"
	"github.com/alternatefutures/package-cloud-sdk/internal"
)

// Provider supplies the endpoint list for a named set.
type Provider interface {
	// Endpoints returns the endpoints of set. Missing sets yield ErrSetNotFound.
	Endpoints(ctx context.Context, set string) ([]failover.Endpoint, error)
}

// StaticProvider is an in-process Provider backed by a map, falling back to the
// built-in defaults when Sets has no entry for a name.
type StaticProvider struct {
	Sets map[string][]failover.Endpoint

	// NoDefaults disables the built-in fallback sets.
	NoDefaults bool
}

func (p *StaticProvider) Endpoints(_ context.Context, set string) ([]failover.Endpoint, error) {
	name := strings.TrimSpace(set)
	if p != nil {
		if eps, ok := p.Sets[name]; ok && len(eps) > 0 {
			return clone(eps), nil
		}
	}
	if p == nil || !p.NoDefaults {
		if eps, ok := Defaults()[name]; ok {
			return eps, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSetNotFound, name)
}

// ConfigFor resolves set through p and wraps it in a failover.Config built with opts.
func ConfigFor(ctx context.Context, p Provider, set string, opts ...failover.ConfigOption) (failover.Config, error) {
	if internal.IsTypedNil(p) {
		p = &StaticProvider{}
	}
	eps, err := p.Endpoints(ctx, set)
	if err != nil {
		return failover.Config{}, err
	}
	return failover.NewConfig(eps, opts...), nil
}
