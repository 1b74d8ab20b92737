package endpoints

import (
	"time"

	"github.com/alternatefutures/package-cloud-sdk/failover"
)

// Built-in set names.
const (
	SetIPFS    = "ipfs"
	SetGraphQL = "graphql"
	SetArweave = "arweave"
)

// DefaultIPFSGateways are the public IPFS gateways tried when fetching content by CID.
var DefaultIPFSGateways = []failover.Endpoint{
	{URL: "https://ipfs.alternatefutures.ai", Priority: 1, Timeout: 10 * time.Second},
	{URL: "https://ipfs.io", Priority: 2, Timeout: 15 * time.Second},
	{URL: "https://dweb.link", Priority: 3, Timeout: 15 * time.Second},
	{URL: "https://cloudflare-ipfs.com", Priority: 4, Timeout: 15 * time.Second},
}

// DefaultGraphQLEndpoints are the GraphQL API endpoints. Backups are appended here as they come online.
var DefaultGraphQLEndpoints = []failover.Endpoint{
	{URL: "https://graphql.service.alternatefutures.ai/graphql", Priority: 1, Timeout: 10 * time.Second},
}

// DefaultArweaveGateways are the Arweave gateways tried when fetching transactions.
var DefaultArweaveGateways = []failover.Endpoint{
	{URL: "https://arweave.net", Priority: 1, Timeout: 15 * time.Second},
	{URL: "https://ar-io.net", Priority: 2, Timeout: 15 * time.Second},
}

// Defaults returns a fresh copy of the built-in sets keyed by set name.
func Defaults() map[string][]failover.Endpoint {
	return map[string][]failover.Endpoint{
		SetIPFS:    clone(DefaultIPFSGateways),
		SetGraphQL: clone(DefaultGraphQLEndpoints),
		SetArweave: clone(DefaultArweaveGateways),
	}
}

func clone(in []failover.Endpoint) []failover.Endpoint {
	if in == nil {
		return nil
	}
	out := make([]failover.Endpoint, len(in))
	copy(out, in)
	return out
}
