package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type AuditStore struct {
	db *sqlx.DB
}

func (as *AuditStore) Insert(ctx context.Context, entry *AuditEntry) error {
	query := `INSERT INTO audit_entries (
		id,
		actor,
		action,
		entity_type,
		entity_id,
		detail
	) VALUES (
		:id,
		:actor,
		:action,
		:entity_type,
		:entity_id,
		:detail
	) RETURNING created_at`

	rows, err := as.db.NamedQueryContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&entry.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan audit timestamp: %w", err)
		}
	}

	return nil
}

func (as *AuditStore) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]AuditEntry, error) {
	query := `SELECT id, actor, action, entity_type, entity_id, detail, created_at
	FROM audit_entries WHERE entity_type = $1 AND entity_id = $2
	ORDER BY created_at DESC LIMIT $3`

	var entries []AuditEntry
	if err := as.db.SelectContext(ctx, &entries, query, entityType, entityID, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}
