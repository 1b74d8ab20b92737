// Package graphql posts GraphQL operations to ranked API endpoints.
//
// Operations are sent verbatim; building queries is left to the caller.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/alternatefutures/package-cloud-sdk/endpoints"
	"github.com/alternatefutures/package-cloud-sdk/failover"
	"github.com/alternatefutures/package-cloud-sdk/transport/httpx"
)

// Request is a GraphQL operation.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Error is one entry of a GraphQL "errors" array.
type Error struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// ResponseError reports a response that carried GraphQL errors. It is treated as
// a failed attempt, so the next endpoint is tried.
type ResponseError struct {
	Endpoint string
	Errors   []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("graphql: %s returned errors: %s", e.Endpoint, strings.Join(msgs, "; "))
}

// Response is a successful GraphQL response.
type Response struct {
	Data       json.RawMessage
	Extensions map[string]interface{}

	Endpoint string
	Attempts int
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Errors     []Error                `json:"errors"`
	Extensions map[string]interface{} `json:"extensions"`
}

// Client posts operations to the "graphql" endpoint set.
type Client struct {
	provider   endpoints.Provider
	set        string
	exec       *failover.Executor
	httpClient *http.Client
	header     http.Header
	cfgOpts    []failover.ConfigOption
	logger     hclog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithProvider sets where endpoint lists come from.
func WithProvider(p endpoints.Provider) Option {
	return func(c *Client) {
		c.provider = p
	}
}

// WithSet overrides the endpoint set name. Default is endpoints.SetGraphQL.
func WithSet(name string) Option {
	return func(c *Client) {
		c.set = name
	}
}

// WithExecutor sets the failover executor.
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

// WithHeader adds a static header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Add(key, value)
	}
}

// WithConfigOptions sets the retry options applied to every request.
func WithConfigOptions(opts ...failover.ConfigOption) Option {
	return func(c *Client) {
		c.cfgOpts = append(c.cfgOpts, opts...)
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
	c := &Client{
		set:    endpoints.SetGraphQL,
		header: http.Header{"Accept": {"application/json"}},
	}
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
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	c.logger = c.logger.Named("graphql")
	return c
}

// Do posts req and returns the raw "data" member of the first endpoint that
// answers without GraphQL errors.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("graphql: query is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("graphql: encode request: %w", err)
	}

	cfg, err := endpoints.ConfigFor(ctx, c.provider, c.set, c.cfgOpts...)
	if err != nil {
		return nil, err
	}

	attempt := httpx.UnitOfWork(c.httpClient, httpx.Post("", "application/json", body, c.header))
	res, err := failover.Execute(ctx, c.exec, cfg, func(ctx context.Context, endpoint string) (*envelope, error) {
		resp, err := attempt(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		var env envelope
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return nil, fmt.Errorf("graphql: decode response from %s: %w", endpoint, err)
		}
		if len(env.Errors) > 0 {
			return nil, &ResponseError{Endpoint: endpoint, Errors: env.Errors}
		}
		return &env, nil
	})
	if err != nil {
		c.logger.Debug("operation failed", "operation", req.OperationName, "error", err)
		return nil, err
	}

	return &Response{
		Data:       res.Data.Data,
		Extensions: res.Data.Extensions,
		Endpoint:   res.Endpoint,
		Attempts:   res.Attempts,
	}, nil
}

// Query posts req and decodes its data into out.
func (c *Client) Query(ctx context.Context, req Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("graphql: decode data: %w", err)
	}
	return nil
}
