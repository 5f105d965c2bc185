// Package observability bundles the service's operational plumbing:
// structured logging, request-scoped log context, dependency health probes
// and graceful shutdown.
package observability
