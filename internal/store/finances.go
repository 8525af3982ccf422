package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type FinanceStore struct {
	db *sqlx.DB
}

// Ensure creates the ledger row for a project if it does not exist yet.
// Ledger rows are materialized lazily on first financial activity.
func (fs *FinanceStore) Ensure(ctx context.Context, projectID uuid.UUID) error {
	query := `INSERT INTO project_finances (project_id) VALUES ($1)
	ON CONFLICT (project_id) DO NOTHING`

	if _, err := fs.db.ExecContext(ctx, query, projectID); err != nil {
		return fmt.Errorf("failed to ensure ledger row: %w", err)
	}

	return nil
}

func (fs *FinanceStore) Get(ctx context.Context, projectID uuid.UUID) (*ProjectFinances, error) {
	query := `SELECT project_id, total_invested, total_used, committed_cost, capital_balance, updated_at
	FROM project_finances WHERE project_id = $1`

	var f ProjectFinances
	err := fs.db.GetContext(ctx, &f, query, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project finances: %w", err)
	}

	return &f, nil
}

// IncrementCommitted adds delta to the committed cost in a single
// statement. Never read-modify-write here: settlements run concurrently.
func (fs *FinanceStore) IncrementCommitted(ctx context.Context, projectID uuid.UUID, delta float64) error {
	query := `UPDATE project_finances SET committed_cost = committed_cost + $1, updated_at = now()
	WHERE project_id = $2`

	result, err := fs.db.ExecContext(ctx, query, delta, projectID)
	if err != nil {
		return fmt.Errorf("failed to increment committed cost: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Overwrite replaces the ledger row wholesale. Used by recalculation,
// which recomputes every figure from source records.
func (fs *FinanceStore) Overwrite(ctx context.Context, f *ProjectFinances) error {
	query := `INSERT INTO project_finances (project_id, total_invested, total_used, committed_cost, updated_at)
	VALUES (:project_id, :total_invested, :total_used, :committed_cost, now())
	ON CONFLICT (project_id) DO UPDATE SET
		total_invested = EXCLUDED.total_invested,
		total_used = EXCLUDED.total_used,
		committed_cost = EXCLUDED.committed_cost,
		updated_at = now()`

	if _, err := fs.db.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("failed to overwrite project finances: %w", err)
	}

	return nil
}

// RecomputeFromSources derives a fresh ledger view from investments,
// expenses and committed purchase orders without touching the stored row.
func (fs *FinanceStore) RecomputeFromSources(ctx context.Context, projectID uuid.UUID) (*ProjectFinances, error) {
	query := `
	WITH invested AS (
		SELECT COALESCE(SUM(amount), 0) AS total
		FROM investments WHERE project_id = $1
	),
	used AS (
		SELECT COALESCE(SUM(amount), 0) AS total
		FROM expenses WHERE project_id = $1
	),
	committed AS (
		SELECT COALESCE(SUM(committed_total), 0) AS total
		FROM purchase_orders WHERE project_id = $1 AND financial_status = 'committed'
	)
	SELECT
		i.total AS total_invested,
		u.total AS total_used,
		c.total AS committed_cost
	FROM invested i, used u, committed c`

	var row struct {
		TotalInvested float64 `db:"total_invested"`
		TotalUsed     float64 `db:"total_used"`
		CommittedCost float64 `db:"committed_cost"`
	}
	if err := fs.db.GetContext(ctx, &row, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to recompute finances from sources: %w", err)
	}

	return &ProjectFinances{
		ProjectID:      projectID,
		TotalInvested:  row.TotalInvested,
		TotalUsed:      row.TotalUsed,
		CommittedCost:  row.CommittedCost,
		CapitalBalance: row.TotalInvested - row.TotalUsed,
	}, nil
}
