// Package authz is the authorization core: a fail-closed decision engine
// over role grants, per-user overrides and route permissions.
//
// Service answers "may this caller do X" questions. Decisions are cached
// per user with a short TTL, platform admins short-circuit before cache and
// store, and any failure on a read path resolves to a denial rather than an
// error. Permission mutations go through the same Service so cache
// invalidation and audit cannot be skipped.
package authz
