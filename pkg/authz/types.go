package authz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation marks a malformed mutation request. Mutation paths surface
// it to the caller; read paths never do.
var ErrValidation = errors.New("validation failed")

// Permission is a (resource, action) pair a decision is requested for.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// String returns the canonical "resource:action" form used as a map key.
func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// Valid reports whether both parts are present and free of the separator.
func (p Permission) Valid() bool {
	return p.Resource != "" && p.Action != "" &&
		!strings.Contains(p.Resource, ":") && !strings.Contains(p.Action, ":")
}

// Grant asserts that a role may perform an action on a resource.
type Grant struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Role     string `json:"role"`
}

// RoutePermission authorizes a role to reach a path template.
type RoutePermission struct {
	RouteTemplate string `json:"route_template"`
	Role          string `json:"role"`
	IsActive      bool   `json:"is_active"`
}

// PermissionUpdate is the command applied by UpdatePermission. Granted=true
// inserts a per-user override row, Granted=false removes it. Both directions
// are idempotent.
type PermissionUpdate struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Granted  bool   `json:"granted"`
}

// Validate checks the update before it touches the store.
func (u PermissionUpdate) Validate() error {
	if u.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	p := Permission{Resource: u.Resource, Action: u.Action}
	if !p.Valid() {
		return fmt.Errorf("%w: malformed permission %q", ErrValidation, p.String())
	}
	return nil
}

// Decision is the detailed outcome of CheckAccessWithDetails.
type Decision struct {
	HasAccess    bool      `json:"has_access"`
	Reason       string    `json:"reason,omitempty"`
	RequiredRole string    `json:"required_role,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Denial reasons exposed to diagnostic UIs.
const (
	ReasonNotAuthenticated = "Not authenticated"
	ReasonNoGrant          = "No grant for this resource and action"
	ReasonNoRoute          = "No route registered for this path"
)
