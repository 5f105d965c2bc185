package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// DBSink writes audit entries to an append-only audit_logs table.
type DBSink struct {
	db *sql.DB
}

// NewDBSink creates a database-backed sink and ensures the table exists.
func NewDBSink(db *sql.DB) (*DBSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	sink := &DBSink{db: db}
	if err := sink.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_logs table: %w", err)
	}
	return sink, nil
}

// ensureTable creates the audit_logs table if it doesn't exist
func (s *DBSink) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id VARCHAR(36) PRIMARY KEY,
		actor_user_id VARCHAR(255) NOT NULL,
		action_kind VARCHAR(50) NOT NULL,
		resource_type VARCHAR(255),
		resource_action VARCHAR(100),
		resource_id VARCHAR(512),
		result BOOLEAN,
		changes JSONB,
		tenant_id VARCHAR(255),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_actor ON audit_logs(actor_user_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_action_kind ON audit_logs(action_kind);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_tenant_id ON audit_logs(tenant_id);
	`

	_, err := s.db.Exec(query)
	return err
}

// Record inserts one entry.
func (s *DBSink) Record(ctx context.Context, entry *Entry) error {
	var changesJSON interface{}
	if entry.Changes != nil {
		b, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("failed to marshal changes: %w", err)
		}
		changesJSON = b
	}

	query := `
		INSERT INTO audit_logs (
			id, actor_user_id, action_kind,
			resource_type, resource_action, resource_id,
			result, changes, tenant_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.ActorUserID, entry.ActionKind,
		nullable(entry.ResourceType), nullable(entry.ResourceAction), nullable(entry.ResourceID),
		entry.Result, changesJSON, nullable(entry.TenantID), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// Close releases nothing; the database handle is owned by the caller.
func (s *DBSink) Close() error { return nil }

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
