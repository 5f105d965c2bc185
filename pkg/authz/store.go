package authz

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Store is the relational query surface the decision engine depends on.
// Grants come from two places: role_permissions rows shared by everyone
// holding the role, and user_permissions override rows written by
// UpdatePermission.
type Store interface {
	// HasGrant reports whether the role or a per-user override permits the
	// (resource, action) pair.
	HasGrant(ctx context.Context, userID, role, resource, action string) (bool, error)

	// GrantedSet returns the granted "resource:action" keys among the given
	// resources, in a single batched query.
	GrantedSet(ctx context.Context, userID, role string, resources []string) (map[string]struct{}, error)

	// RequiredRole returns a role that would be authorized for the pair, or
	// empty when none exists. Best-effort, used only for denial diagnostics.
	RequiredRole(ctx context.Context, resource, action string) (string, error)

	// RouteByPath returns the route template exactly matching path, or empty.
	RouteByPath(ctx context.Context, path string) (string, error)

	// ListRouteTemplates returns all registered templates in declaration
	// order, which is also the pattern matcher's tie-break order.
	ListRouteTemplates(ctx context.Context) ([]string, error)

	// RouteAllowed reports whether an active route permission exists for
	// (template, role).
	RouteAllowed(ctx context.Context, template, role string) (bool, error)

	// UpsertUserGrant inserts a per-user override row. Idempotent.
	UpsertUserGrant(ctx context.Context, userID, resource, action string) error

	// DeleteUserGrant removes a per-user override row. Idempotent.
	DeleteUserGrant(ctx context.Context, userID, resource, action string) error
}

// PostgresStore implements Store on a relational database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// HasGrant checks role grants and user overrides in one round-trip.
func (s *PostgresStore) HasGrant(ctx context.Context, userID, role, resource, action string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM role_permissions WHERE role = $1 AND resource = $2 AND action = $3
		) OR EXISTS(
			SELECT 1 FROM user_permissions WHERE user_id = $4 AND resource = $5 AND action = $6
		)
	`

	var granted bool
	err := s.db.QueryRowContext(ctx, query, role, resource, action, userID, resource, action).Scan(&granted)
	if err != nil {
		return false, fmt.Errorf("failed to query grant: %w", err)
	}
	return granted, nil
}

// GrantedSet fetches every granted pair among the requested resources with a
// single role-permission join per call.
func (s *PostgresStore) GrantedSet(ctx context.Context, userID, role string, resources []string) (map[string]struct{}, error) {
	query := `
		SELECT resource, action FROM role_permissions
		WHERE role = $1 AND resource = ANY($2)
		UNION
		SELECT resource, action FROM user_permissions
		WHERE user_id = $3 AND resource = ANY($2)
	`

	rows, err := s.db.QueryContext(ctx, query, role, pq.Array(resources), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grant set: %w", err)
	}
	defer rows.Close()

	granted := make(map[string]struct{})
	for rows.Next() {
		var resource, action string
		if err := rows.Scan(&resource, &action); err != nil {
			return nil, fmt.Errorf("failed to scan grant row: %w", err)
		}
		granted[Permission{Resource: resource, Action: action}.String()] = struct{}{}
	}
	return granted, rows.Err()
}

// RequiredRole returns one role holding the grant, for denial diagnostics.
func (s *PostgresStore) RequiredRole(ctx context.Context, resource, action string) (string, error) {
	query := `SELECT role FROM role_permissions WHERE resource = $1 AND action = $2 ORDER BY role LIMIT 1`

	var role string
	err := s.db.QueryRowContext(ctx, query, resource, action).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query required role: %w", err)
	}
	return role, nil
}

// RouteByPath looks for a template registered verbatim as the given path.
func (s *PostgresStore) RouteByPath(ctx context.Context, path string) (string, error) {
	query := `SELECT route_template FROM route_permissions WHERE route_template = $1 LIMIT 1`

	var template string
	err := s.db.QueryRowContext(ctx, query, path).Scan(&template)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query route: %w", err)
	}
	return template, nil
}

// ListRouteTemplates returns templates ordered by first registration.
func (s *PostgresStore) ListRouteTemplates(ctx context.Context) ([]string, error) {
	query := `SELECT route_template FROM route_permissions GROUP BY route_template ORDER BY MIN(id)`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list route templates: %w", err)
	}
	defer rows.Close()

	var templates []string
	for rows.Next() {
		var tmpl string
		if err := rows.Scan(&tmpl); err != nil {
			return nil, fmt.Errorf("failed to scan route template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}

// RouteAllowed reports whether the role holds an active permission on the
// template.
func (s *PostgresStore) RouteAllowed(ctx context.Context, template, role string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM route_permissions
			WHERE route_template = $1 AND role = $2 AND is_active = TRUE
		)
	`

	var allowed bool
	err := s.db.QueryRowContext(ctx, query, template, role).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("failed to query route permission: %w", err)
	}
	return allowed, nil
}

// UpsertUserGrant inserts the override row; a duplicate insert is a no-op.
func (s *PostgresStore) UpsertUserGrant(ctx context.Context, userID, resource, action string) error {
	query := `
		INSERT INTO user_permissions (user_id, resource, action)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, resource, action) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, userID, resource, action); err != nil {
		return fmt.Errorf("failed to insert user grant: %w", err)
	}
	return nil
}

// DeleteUserGrant removes the override row; deleting an absent row is a no-op.
func (s *PostgresStore) DeleteUserGrant(ctx context.Context, userID, resource, action string) error {
	query := `DELETE FROM user_permissions WHERE user_id = $1 AND resource = $2 AND action = $3`

	if _, err := s.db.ExecContext(ctx, query, userID, resource, action); err != nil {
		return fmt.Errorf("failed to delete user grant: %w", err)
	}
	return nil
}
