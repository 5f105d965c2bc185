// Package storage opens and configures the service's backing connections:
// PostgreSQL for grants and audit, Redis for the shared decision cache.
package storage
