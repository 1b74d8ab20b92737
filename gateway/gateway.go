// Package gateway fetches content-addressed data from IPFS and Arweave gateways,
// failing over between gateways in priority order.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/alternatefutures/package-cloud-sdk/endpoints"
	"github.com/alternatefutures/package-cloud-sdk/failover"
	"github.com/alternatefutures/package-cloud-sdk/transport/httpx"
)

var (
	// ErrInvalidCID is returned for identifiers that are not IPFS CIDs.
	ErrInvalidCID = errors.New("gateway: invalid CID")
	// ErrInvalidTxID is returned for identifiers that are not Arweave transaction IDs.
	ErrInvalidTxID = errors.New("gateway: invalid Arweave transaction ID")
)

var (
	cidV0 = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
	cidV1 = regexp.MustCompile(`^b[a-z2-7]{58,}$`)
	txID  = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)
)

// Content is data retrieved from a gateway.
type Content struct {
	Data        []byte
	ContentType string

	// Endpoint is the gateway that served Data.
	Endpoint string
	// Attempts counts every gateway request made, including the successful one.
	Attempts int
}

// Client fetches content through ranked gateways.
type Client struct {
	provider   endpoints.Provider
	exec       *failover.Executor
	httpClient *http.Client
	cfgOpts    []failover.ConfigOption
	httpOpts   []httpx.Option
	logger     hclog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithProvider sets where gateway lists come from. Default is the built-in sets.
func WithProvider(p endpoints.Provider) Option {
	return func(c *Client) {
		c.provider = p
	}
}

// WithExecutor sets the failover executor. Default is failover.DefaultExecutor.
func WithExecutor(e *failover.Executor) Option {
	return func(c *Client) {
		c.exec = e
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithConfigOptions sets the retry options applied to every fetch.
func WithConfigOptions(opts ...failover.ConfigOption) Option {
	return func(c *Client) {
		c.cfgOpts = append(c.cfgOpts, opts...)
	}
}

// WithMaxBodyBytes caps the size of fetched content.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, httpx.WithMaxBodyBytes(n))
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.provider == nil {
		c.provider = &endpoints.StaticProvider{}
	}
	if c.exec == nil {
		c.exec = failover.DefaultExecutor()
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	c.logger = c.logger.Named("gateway")
	return c
}

// FetchIPFS retrieves cid, optionally followed by a path inside the DAG
// ("<cid>/dir/file.txt"), from the "ipfs" gateway set via GET {gateway}/ipfs/{cid}.
func (c *Client) FetchIPFS(ctx context.Context, cid string) (*Content, error) {
	root, _, _ := strings.Cut(cid, "/")
	if !ValidCID(root) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCID, cid)
	}
	return c.fetch(ctx, endpoints.SetIPFS, "/ipfs/"+cid)
}

// FetchArweave retrieves transaction id from the "arweave" gateway set via GET {gateway}/{id}.
func (c *Client) FetchArweave(ctx context.Context, id string) (*Content, error) {
	if !ValidTxID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTxID, id)
	}
	return c.fetch(ctx, endpoints.SetArweave, "/"+id)
}

// Fetch retrieves path from the gateways of an arbitrary set.
func (c *Client) Fetch(ctx context.Context, set, path string) (*Content, error) {
	return c.fetch(ctx, set, path)
}

func (c *Client) fetch(ctx context.Context, set, path string) (*Content, error) {
	cfg, err := endpoints.ConfigFor(ctx, c.provider, set, c.cfgOpts...)
	if err != nil {
		return nil, err
	}

	res, err := httpx.Do(ctx, c.exec, c.httpClient, cfg, httpx.Get(path, nil), c.httpOpts...)
	if err != nil {
		c.logger.Debug("fetch failed", "set", set, "path", path, "error", err)
		return nil, err
	}
	c.logger.Debug("fetched content", "set", set, "path", path, "gateway", res.Endpoint, "attempts", res.Attempts, "bytes", len(res.Data.Body))

	return &Content{
		Data:        res.Data.Body,
		ContentType: res.Data.Header.Get("Content-Type"),
		Endpoint:    res.Endpoint,
		Attempts:    res.Attempts,
	}, nil
}

// ValidCID reports whether s looks like a CIDv0 (base58 "Qm...") or a base32 CIDv1 ("b...").
func ValidCID(s string) bool {
	return cidV0.MatchString(s) || cidV1.MatchString(s)
}

// ValidTxID reports whether s looks like an Arweave transaction ID.
func ValidTxID(s string) bool {
	return txID.MatchString(s)
}
