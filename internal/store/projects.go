package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ProjectStore struct {
	db *sqlx.DB
}

func (ps *ProjectStore) Insert(ctx context.Context, project *Project) error {
	query := `INSERT INTO projects (
		id,
		name,
		created_by,
		budget
	) VALUES (
		:id,
		:name,
		:created_by,
		:budget
	) RETURNING created_at, updated_at`

	rows, err := ps.db.NamedQueryContext(ctx, query, project)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&project.CreatedAt, &project.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan project timestamps: %w", err)
		}
	}

	return nil
}

func (ps *ProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `SELECT id, name, created_by, budget, created_at, updated_at
	FROM projects WHERE id = $1`

	var p Project
	err := ps.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &p, nil
}

func (ps *ProjectStore) List(ctx context.Context) ([]Project, error) {
	query := `SELECT id, name, created_by, budget, created_at, updated_at
	FROM projects ORDER BY created_at`

	var projects []Project
	if err := ps.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

func (ps *ProjectStore) UpdateBudget(ctx context.Context, id uuid.UUID, budget []byte) error {
	query := `UPDATE projects SET budget = $1, updated_at = now() WHERE id = $2`

	result, err := ps.db.ExecContext(ctx, query, budget, id)
	if err != nil {
		return fmt.Errorf("failed to update project budget: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a project and everything it owns in one transaction:
// either the whole tree goes or none of it does.
func (ps *ProjectStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := ps.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	cascade := []string{
		`DELETE FROM purchase_order_material_responses WHERE order_id IN (SELECT id FROM purchase_orders WHERE project_id = $1)`,
		`DELETE FROM purchase_order_materials WHERE order_id IN (SELECT id FROM purchase_orders WHERE project_id = $1)`,
		`DELETE FROM purchase_orders WHERE project_id = $1`,
		`DELETE FROM budget_transfers WHERE project_id = $1`,
		`DELETE FROM expenses WHERE project_id = $1`,
		`DELETE FROM investments WHERE project_id = $1`,
		`DELETE FROM project_finances WHERE project_id = $1`,
		`DELETE FROM phases WHERE project_id = $1`,
	}
	for _, q := range cascade {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to cascade project delete: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project delete: %w", err)
	}

	log.Printf("Project %s deleted with all owned records", id)
	return nil
}
