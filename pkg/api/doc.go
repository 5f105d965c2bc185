// Package api exposes the authorization engine over HTTP: decision
// endpoints for single, detailed and batched checks, route access checks,
// permission mutations and tenant/cache administration.
package api
