package authz

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all authorization schema migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create role_permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS role_permissions (
					id BIGSERIAL PRIMARY KEY,
					role VARCHAR(255) NOT NULL,
					resource VARCHAR(255) NOT NULL,
					action VARCHAR(100) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(role, resource, action)
				);

				CREATE INDEX idx_role_permissions_role ON role_permissions(role);
				CREATE INDEX idx_role_permissions_resource ON role_permissions(resource, action);
			`,
		},
		{
			Version:     2,
			Description: "Create user_permissions override table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_permissions (
					id BIGSERIAL PRIMARY KEY,
					user_id VARCHAR(255) NOT NULL,
					resource VARCHAR(255) NOT NULL,
					action VARCHAR(100) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, resource, action)
				);

				CREATE INDEX idx_user_permissions_user_id ON user_permissions(user_id);
			`,
		},
		{
			Version:     3,
			Description: "Create route_permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS route_permissions (
					id BIGSERIAL PRIMARY KEY,
					route_template VARCHAR(512) NOT NULL,
					role VARCHAR(255) NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(route_template, role)
				);

				CREATE INDEX idx_route_permissions_template ON route_permissions(route_template);
				CREATE INDEX idx_route_permissions_role ON route_permissions(role);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS authz_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM authz_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO authz_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
