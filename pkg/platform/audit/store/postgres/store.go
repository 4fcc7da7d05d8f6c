package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	audit "lumine/pkg/platform/audit"
)

// Store appends entries to the audit_log table. Rows are insert-only and are
// written on the pool, never inside a caller's transaction, so an audit failure
// cannot roll back the mutation it describes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal audit meta: %w", err)
	}

	query := `
		INSERT INTO audit_log (
			id, occurred_at, actor_id, actor_role, action,
			resource_type, resource_id, success, meta
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.ActorID,
		entry.ActorRole,
		string(entry.Action),
		entry.ResourceType,
		entry.ResourceID,
		entry.Success,
		metaBytes,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// CountByAction is used by integration tests and operational checks.
func (s *Store) CountByAction(ctx context.Context, action audit.Action) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log WHERE action = $1`, string(action)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}
