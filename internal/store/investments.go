package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type InvestmentStore struct {
	db *sqlx.DB
}

func (is *InvestmentStore) Insert(ctx context.Context, investment *Investment) error {
	query := `INSERT INTO investments (
		id,
		project_id,
		investor,
		amount,
		invested_on
	) VALUES (
		:id,
		:project_id,
		:investor,
		:amount,
		:invested_on
	) RETURNING created_at`

	rows, err := is.db.NamedQueryContext(ctx, query, investment)
	if err != nil {
		return fmt.Errorf("failed to insert investment: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&investment.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan investment timestamp: %w", err)
		}
	}

	return nil
}

func (is *InvestmentStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]Investment, error) {
	query := `SELECT id, project_id, investor, amount, invested_on, created_at
	FROM investments WHERE project_id = $1 ORDER BY invested_on, created_at`

	var investments []Investment
	if err := is.db.SelectContext(ctx, &investments, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}

	return investments, nil
}

func (is *InvestmentStore) SumByProject(ctx context.Context, projectID uuid.UUID) (float64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM investments WHERE project_id = $1`

	var total float64
	if err := is.db.GetContext(ctx, &total, query, projectID); err != nil {
		return 0, fmt.Errorf("failed to sum investments: %w", err)
	}

	return total, nil
}
