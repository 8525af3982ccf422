package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TransferStore struct {
	db *sqlx.DB
}

func (ts *TransferStore) Insert(ctx context.Context, transfer *BudgetTransfer) error {
	query := `INSERT INTO budget_transfers (
		id,
		project_id,
		from_category,
		to_category,
		amount,
		status,
		requested_by,
		note
	) VALUES (
		:id,
		:project_id,
		:from_category,
		:to_category,
		:amount,
		:status,
		:requested_by,
		:note
	) RETURNING created_at`

	rows, err := ts.db.NamedQueryContext(ctx, query, transfer)
	if err != nil {
		return fmt.Errorf("failed to insert budget transfer: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&transfer.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan transfer timestamp: %w", err)
		}
	}

	return nil
}

func (ts *TransferStore) GetByID(ctx context.Context, id uuid.UUID) (*BudgetTransfer, error) {
	query := `SELECT id, project_id, from_category, to_category, amount, status, requested_by, decided_by, note, decided_at, created_at
	FROM budget_transfers WHERE id = $1`

	var t BudgetTransfer
	err := ts.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget transfer: %w", err)
	}

	return &t, nil
}

func (ts *TransferStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]BudgetTransfer, error) {
	query := `SELECT id, project_id, from_category, to_category, amount, status, requested_by, decided_by, note, decided_at, created_at
	FROM budget_transfers WHERE project_id = $1 ORDER BY created_at DESC`

	var transfers []BudgetTransfer
	if err := ts.db.SelectContext(ctx, &transfers, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list budget transfers: %w", err)
	}

	return transfers, nil
}

// Approve applies a pending transfer. The transfer row and the project
// budget are locked for the duration, and apply re-derives the new budget
// document from the current one, so the category balance is re-checked
// against whatever is on disk at approval time, not at request time.
func (ts *TransferStore) Approve(ctx context.Context, id uuid.UUID, decidedBy string, apply func(budget []byte) ([]byte, error)) (*BudgetTransfer, error) {
	tx, err := ts.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transfer approval: %w", err)
	}
	defer tx.Rollback()

	var t BudgetTransfer
	err = tx.GetContext(ctx, &t, `SELECT id, project_id, from_category, to_category, amount, status, requested_by, decided_by, note, decided_at, created_at
	FROM budget_transfers WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock budget transfer: %w", err)
	}

	if t.Status != TransferStatusPending {
		return nil, ErrTransferNotPending
	}

	var rawBudget []byte
	err = tx.GetContext(ctx, &rawBudget, `SELECT budget FROM projects WHERE id = $1 FOR UPDATE`, t.ProjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock project budget: %w", err)
	}

	newBudget, err := apply(rawBudget)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE projects SET budget = $1, updated_at = now() WHERE id = $2`, newBudget, t.ProjectID); err != nil {
		return nil, fmt.Errorf("failed to write transferred budget: %w", err)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `UPDATE budget_transfers SET status = $1, decided_by = $2, decided_at = $3 WHERE id = $4`,
		TransferStatusApproved, decidedBy, now, id); err != nil {
		return nil, fmt.Errorf("failed to mark transfer approved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transfer approval: %w", err)
	}

	t.Status = TransferStatusApproved
	t.DecidedBy = &decidedBy
	t.DecidedAt = &now
	return &t, nil
}

func (ts *TransferStore) Reject(ctx context.Context, id uuid.UUID, decidedBy, note string) (*BudgetTransfer, error) {
	query := `UPDATE budget_transfers SET status = $1, decided_by = $2, decided_at = now(), note = $3
	WHERE id = $4 AND status = $5`

	result, err := ts.db.ExecContext(ctx, query, TransferStatusRejected, decidedBy, note, id, TransferStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to reject budget transfer: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		if _, err := ts.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrTransferNotPending
	}

	return ts.GetByID(ctx, id)
}
