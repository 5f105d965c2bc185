package middleware

import (
	"context"
	"net/http"

	"github.com/brightclass/brightclass/pkg/authz"
)

// Checker is the decision surface the access middleware needs from the
// engine.
type Checker interface {
	CheckAccess(ctx context.Context, resource, action string) bool
	CanAccessRoute(ctx context.Context, path string) bool
}

// RequirePermission gates a handler on a single (resource, action) pair.
// Denials return 403; the engine handles admin bypass and fail-closed
// semantics internally.
func RequirePermission(checker Checker, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !checker.CheckAccess(r.Context(), resource, action) {
				forbiddenResponse(w, "insufficient permissions for "+authz.Permission{Resource: resource, Action: action}.String())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GuardRoutes gates every request on the engine's route permissions, keyed
// by the request path.
func GuardRoutes(checker Checker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !checker.CanAccessRoute(r.Context(), r.URL.Path) {
				forbiddenResponse(w, "access to this route is not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
