package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		budget JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS phases (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL REFERENCES projects(id),
		name TEXT NOT NULL,
		allocated_budget NUMERIC(14,2) NOT NULL DEFAULT 0,
		committed_cost NUMERIC(14,2) NOT NULL DEFAULT 0,
		actual_spend NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phases_project ON phases (project_id)`,

	`CREATE TABLE IF NOT EXISTS project_finances (
		project_id UUID PRIMARY KEY REFERENCES projects(id),
		total_invested NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_used NUMERIC(14,2) NOT NULL DEFAULT 0,
		committed_cost NUMERIC(14,2) NOT NULL DEFAULT 0,
		capital_balance NUMERIC(14,2) GENERATED ALWAYS AS (total_invested - total_used) STORED,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL REFERENCES projects(id),
		phase_id UUID REFERENCES phases(id),
		supplier TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		is_bulk_order BOOLEAN NOT NULL DEFAULT FALSE,
		quantity NUMERIC(14,3) NOT NULL DEFAULT 0,
		unit_cost NUMERIC(14,2),
		total_cost NUMERIC(14,2) NOT NULL DEFAULT 0,
		committed_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		financial_status TEXT NOT NULL DEFAULT 'uncommitted',
		response_token TEXT NOT NULL,
		response_token_expires_at TIMESTAMPTZ NOT NULL,
		response_token_used_at TIMESTAMPTZ,
		supplier_notes TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		retryable BOOLEAN,
		responded_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_purchase_orders_token ON purchase_orders (response_token)`,
	`CREATE INDEX IF NOT EXISTS idx_purchase_orders_project ON purchase_orders (project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_purchase_orders_phase ON purchase_orders (phase_id)`,

	`CREATE TABLE IF NOT EXISTS purchase_order_materials (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		material_request_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		quantity NUMERIC(14,3) NOT NULL DEFAULT 0,
		unit_cost NUMERIC(14,2),
		total_cost NUMERIC(14,2) NOT NULL DEFAULT 0,
		decision TEXT NOT NULL DEFAULT 'pending',
		flagged_for_reassignment BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (order_id, material_request_id)
	)`,

	`CREATE TABLE IF NOT EXISTS purchase_order_material_responses (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		material_request_id TEXT NOT NULL,
		decision TEXT NOT NULL,
		unit_cost NUMERIC(14,2),
		quantity NUMERIC(14,3),
		notes TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS budget_transfers (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL REFERENCES projects(id),
		from_category TEXT NOT NULL,
		to_category TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		requested_by TEXT NOT NULL DEFAULT '',
		decided_by TEXT,
		note TEXT NOT NULL DEFAULT '',
		decided_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_budget_transfers_project ON budget_transfers (project_id)`,

	`CREATE TABLE IF NOT EXISTS expenses (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL REFERENCES projects(id),
		phase_id UUID REFERENCES phases(id),
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		amount NUMERIC(14,2) NOT NULL,
		incurred_on DATE NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_project ON expenses (project_id)`,

	`CREATE TABLE IF NOT EXISTS investments (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL REFERENCES projects(id),
		investor TEXT NOT NULL DEFAULT '',
		amount NUMERIC(14,2) NOT NULL,
		invested_on DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_investments_project ON investments (project_id)`,

	`CREATE TABLE IF NOT EXISTS audit_entries (
		id UUID PRIMARY KEY,
		actor TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		detail JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_entity ON audit_entries (entity_type, entity_id)`,
}

// Migrate creates any missing tables and indexes. Statements are
// idempotent so running it on every startup is safe.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
