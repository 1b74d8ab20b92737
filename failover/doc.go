// Package failover executes a unit of work against a ranked list of endpoints,
// retrying each endpoint a bounded number of times and failing over to the next
// until one succeeds or all are exhausted.
//
// Endpoints are tried strictly one at a time in ascending priority order.
// Per-endpoint timeouts race the call against a timer; a call that outlives its
// timeout is abandoned but not forcibly stopped, so units of work should honor
// the context they are given.
package failover
