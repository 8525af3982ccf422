package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PhaseStore struct {
	db *sqlx.DB
}

func (ps *PhaseStore) Insert(ctx context.Context, phase *Phase) error {
	query := `INSERT INTO phases (
		id,
		project_id,
		name,
		allocated_budget,
		committed_cost,
		actual_spend
	) VALUES (
		:id,
		:project_id,
		:name,
		:allocated_budget,
		:committed_cost,
		:actual_spend
	) RETURNING created_at, updated_at`

	rows, err := ps.db.NamedQueryContext(ctx, query, phase)
	if err != nil {
		return fmt.Errorf("failed to insert phase: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&phase.CreatedAt, &phase.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan phase timestamps: %w", err)
		}
	}

	return nil
}

func (ps *PhaseStore) GetByID(ctx context.Context, id uuid.UUID) (*Phase, error) {
	query := `SELECT id, project_id, name, allocated_budget, committed_cost, actual_spend, created_at, updated_at
	FROM phases WHERE id = $1`

	var p Phase
	err := ps.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phase: %w", err)
	}

	return &p, nil
}

func (ps *PhaseStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]Phase, error) {
	query := `SELECT id, project_id, name, allocated_budget, committed_cost, actual_spend, created_at, updated_at
	FROM phases WHERE project_id = $1 ORDER BY created_at`

	var phases []Phase
	if err := ps.db.SelectContext(ctx, &phases, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}

	return phases, nil
}

func (ps *PhaseStore) UpdateAllocatedBudget(ctx context.Context, phaseID uuid.UUID, amount float64) error {
	query := `UPDATE phases SET allocated_budget = $1, updated_at = now() WHERE id = $2`

	result, err := ps.db.ExecContext(ctx, query, amount, phaseID)
	if err != nil {
		return fmt.Errorf("failed to update phase allocation: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// IncrementCommitted adds delta to the phase committed cost in a single
// statement so concurrent order acceptances never lose an update.
func (ps *PhaseStore) IncrementCommitted(ctx context.Context, phaseID uuid.UUID, delta float64) error {
	query := `UPDATE phases SET committed_cost = committed_cost + $1, updated_at = now() WHERE id = $2`

	result, err := ps.db.ExecContext(ctx, query, delta, phaseID)
	if err != nil {
		return fmt.Errorf("failed to increment phase committed cost: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// RecomputeAggregates rebuilds committed cost and actual spend for every
// phase of the project from the underlying orders and expenses.
func (ps *PhaseStore) RecomputeAggregates(ctx context.Context, projectID uuid.UUID) error {
	query := `
	UPDATE phases p SET
		committed_cost = COALESCE((
			SELECT SUM(po.committed_total)
			FROM purchase_orders po
			WHERE po.phase_id = p.id AND po.financial_status = 'committed'
		), 0),
		actual_spend = COALESCE((
			SELECT SUM(e.amount)
			FROM expenses e
			WHERE e.phase_id = p.id
		), 0),
		updated_at = now()
	WHERE p.project_id = $1`

	if _, err := ps.db.ExecContext(ctx, query, projectID); err != nil {
		return fmt.Errorf("failed to recompute phase aggregates: %w", err)
	}

	return nil
}
