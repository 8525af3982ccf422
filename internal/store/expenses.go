package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ExpenseStore struct {
	db *sqlx.DB
}

func (es *ExpenseStore) Insert(ctx context.Context, expense *Expense) error {
	query := `INSERT INTO expenses (
		id,
		project_id,
		phase_id,
		category,
		description,
		amount,
		incurred_on,
		created_by
	) VALUES (
		:id,
		:project_id,
		:phase_id,
		:category,
		:description,
		:amount,
		:incurred_on,
		:created_by
	) RETURNING created_at`

	rows, err := es.db.NamedQueryContext(ctx, query, expense)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&expense.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan expense timestamp: %w", err)
		}
	}

	return nil
}

func (es *ExpenseStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]Expense, error) {
	query := `SELECT id, project_id, phase_id, category, description, amount, incurred_on, created_by, created_at
	FROM expenses WHERE project_id = $1 ORDER BY incurred_on, created_at`

	var expenses []Expense
	if err := es.db.SelectContext(ctx, &expenses, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	return expenses, nil
}

func (es *ExpenseStore) SumByProject(ctx context.Context, projectID uuid.UUID) (float64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE project_id = $1`

	var total float64
	if err := es.db.GetContext(ctx, &total, query, projectID); err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}

	return total, nil
}

func (es *ExpenseStore) SumByCategory(ctx context.Context, projectID uuid.UUID) ([]CategoryTotal, error) {
	query := `
	SELECT
		category,
		SUM(amount) AS total
	FROM
		expenses
	WHERE
		project_id = $1
	GROUP BY
		category
	ORDER BY
		total DESC`

	var totals []CategoryTotal
	if err := es.db.SelectContext(ctx, &totals, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to sum expenses by category: %w", err)
	}

	return totals, nil
}

func (es *ExpenseStore) DailyTotals(ctx context.Context, projectID uuid.UUID) ([]DailyTotal, error) {
	query := `
	SELECT
		incurred_on AS day,
		SUM(amount) AS total
	FROM
		expenses
	WHERE
		project_id = $1
	GROUP BY
		incurred_on
	ORDER BY
		incurred_on`

	var totals []DailyTotal
	if err := es.db.SelectContext(ctx, &totals, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to compute daily spend: %w", err)
	}

	return totals, nil
}
