package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alternatefutures/package-cloud-sdk/failover"
	"github.com/alternatefutures/package-cloud-sdk/transport/httpx"
)

// DefaultDocumentPath is where HTTPSource looks for the endpoint document on each mirror.
const DefaultDocumentPath = "/v1/endpoints.json"

// Document is the wire form of a published endpoint catalogue.
//
//	{"sets": {"ipfs": [{"url": "https://ipfs.io", "priority": 2, "timeout_ms": 15000}]}}
type Document struct {
	Sets map[string][]DocumentEndpoint `json:"sets"`
}

// DocumentEndpoint is one endpoint entry in a Document.
type DocumentEndpoint struct {
	URL       string `json:"url"`
	Priority  int    `json:"priority"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

// Endpoint converts the entry.
func (e DocumentEndpoint) Endpoint() failover.Endpoint {
	return failover.Endpoint{
		URL:      strings.TrimSpace(e.URL),
		Priority: e.Priority,
		Timeout:  time.Duration(e.TimeoutMS) * time.Millisecond,
	}
}

// HTTPSource is a Source that downloads a Document from a ranked list of mirrors.
// Mirrors are themselves tried through the failover executor.
type HTTPSource struct {
	Mirrors  failover.Config
	Path     string
	Client   *http.Client
	Executor *failover.Executor
}

// FetchSet downloads the document and returns set from it.
func (s *HTTPSource) FetchSet(ctx context.Context, set string) ([]failover.Endpoint, error) {
	doc, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	raw, ok := doc.Sets[set]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSetNotFound, set)
	}
	eps := make([]failover.Endpoint, 0, len(raw))
	for _, e := range raw {
		eps = append(eps, e.Endpoint())
	}
	return eps, nil
}

// Fetch downloads and decodes the whole document. A mirror serving an
// undecodable document counts as a failed attempt.
func (s *HTTPSource) Fetch(ctx context.Context) (*Document, error) {
	path := s.Path
	if path == "" {
		path = DefaultDocumentPath
	}
	attempt := httpx.UnitOfWork(s.Client, httpx.Get(path, http.Header{"Accept": {"application/json"}}))

	res, err := failover.Execute(ctx, s.Executor, s.Mirrors, func(ctx context.Context, endpoint string) (*Document, error) {
		resp, err := attempt(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		var doc Document
		if err := json.Unmarshal(resp.Body, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode document from %s: %w", ErrFetchFailed, endpoint, err)
		}
		return &doc, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return res.Data, nil
}
