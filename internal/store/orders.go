package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type OrderStore struct {
	db *sqlx.DB
}

// ApplyResponseParams carries one guarded state transition. The update
// only lands when the token is still unspent and the current status is in
// FromStatuses; a response that lost the race affects zero rows.
type ApplyResponseParams struct {
	OrderID         uuid.UUID      `db:"order_id"`
	FromStatuses    pq.StringArray `db:"from_statuses"`
	NewStatus       string         `db:"new_status"`
	UnitCost        *float64       `db:"unit_cost"`
	Quantity        *float64       `db:"quantity"`
	TotalCost       float64        `db:"total_cost"`
	CommittedTotal  float64        `db:"committed_total"`
	FinancialStatus string         `db:"financial_status"`
	SupplierNotes   string         `db:"supplier_notes"`
	RejectionReason string         `db:"rejection_reason"`
	Retryable       *bool          `db:"retryable"`
	RespondedAt     time.Time      `db:"responded_at"`
}

// BulkLineUpdate rewrites one material line during a bulk response.
type BulkLineUpdate struct {
	MaterialRequestID      string
	Decision               string
	UnitCost               *float64
	Quantity               *float64
	TotalCost              float64
	FlaggedForReassignment bool
}

// ApplyBulkResponseParams applies a validated bulk response plan: the
// guarded order transition plus every line rewrite and response record,
// in one transaction.
type ApplyBulkResponseParams struct {
	OrderID         uuid.UUID
	FromStatuses    []string
	NewStatus       string
	TotalCost       float64
	CommittedTotal  float64
	FinancialStatus string
	SupplierNotes   string
	RespondedAt     time.Time
	Lines           []BulkLineUpdate
	Responses       []OrderMaterialResponse
}

func (os *OrderStore) Insert(ctx context.Context, order *PurchaseOrder) error {
	tx, err := os.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin order insert: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO purchase_orders (
		id,
		project_id,
		phase_id,
		supplier,
		description,
		status,
		is_bulk_order,
		quantity,
		unit_cost,
		total_cost,
		committed_total,
		financial_status,
		response_token,
		response_token_expires_at,
		supplier_notes,
		rejection_reason
	) VALUES (
		:id,
		:project_id,
		:phase_id,
		:supplier,
		:description,
		:status,
		:is_bulk_order,
		:quantity,
		:unit_cost,
		:total_cost,
		:committed_total,
		:financial_status,
		:response_token,
		:response_token_expires_at,
		:supplier_notes,
		:rejection_reason
	) RETURNING created_at, updated_at`

	rows, err := tx.NamedQuery(query, order)
	if err != nil {
		return fmt.Errorf("failed to insert purchase order: %w", err)
	}
	if rows.Next() {
		if err := rows.Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan order timestamps: %w", err)
		}
	}
	rows.Close()

	materialQuery := `INSERT INTO purchase_order_materials (
		id,
		order_id,
		material_request_id,
		description,
		quantity,
		unit_cost,
		total_cost,
		decision,
		flagged_for_reassignment
	) VALUES (
		:id,
		:order_id,
		:material_request_id,
		:description,
		:quantity,
		:unit_cost,
		:total_cost,
		:decision,
		:flagged_for_reassignment
	)`

	for i := range order.Materials {
		m := &order.Materials[i]
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.OrderID = order.ID
		if m.Decision == "" {
			m.Decision = DecisionPending
		}
		if _, err := tx.NamedExecContext(ctx, materialQuery, m); err != nil {
			return fmt.Errorf("failed to insert order material %s: %w", m.MaterialRequestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order insert: %w", err)
	}

	return nil
}

func (os *OrderStore) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	query := `SELECT id, project_id, phase_id, supplier, description, status, is_bulk_order,
		quantity, unit_cost, total_cost, committed_total, financial_status,
		response_token, response_token_expires_at, response_token_used_at,
		supplier_notes, rejection_reason, retryable, responded_at, created_at, updated_at
	FROM purchase_orders WHERE id = $1`

	var order PurchaseOrder
	err := os.db.GetContext(ctx, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}

	if order.IsBulkOrder {
		materialsQuery := `SELECT id, order_id, material_request_id, description, quantity,
			unit_cost, total_cost, decision, flagged_for_reassignment
		FROM purchase_order_materials WHERE order_id = $1 ORDER BY material_request_id`

		if err := os.db.SelectContext(ctx, &order.Materials, materialsQuery, id); err != nil {
			return nil, fmt.Errorf("failed to load order materials: %w", err)
		}
	}

	return &order, nil
}

// ListByProject returns orders without their material lines; callers that
// need lines fetch the order by id.
func (os *OrderStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]PurchaseOrder, error) {
	query := `SELECT id, project_id, phase_id, supplier, description, status, is_bulk_order,
		quantity, unit_cost, total_cost, committed_total, financial_status,
		response_token, response_token_expires_at, response_token_used_at,
		supplier_notes, rejection_reason, retryable, responded_at, created_at, updated_at
	FROM purchase_orders WHERE project_id = $1 ORDER BY created_at DESC`

	var orders []PurchaseOrder
	if err := os.db.SelectContext(ctx, &orders, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}

	return orders, nil
}

// ApplyResponse performs the guarded transition for a single-line order.
// The token spend and the state change land in the same statement, so a
// second response with the same token finds zero matching rows.
func (os *OrderStore) ApplyResponse(ctx context.Context, p ApplyResponseParams) (bool, error) {
	query := `UPDATE purchase_orders SET
		status = :new_status,
		unit_cost = COALESCE(:unit_cost, unit_cost),
		quantity = COALESCE(:quantity, quantity),
		total_cost = :total_cost,
		committed_total = :committed_total,
		financial_status = :financial_status,
		supplier_notes = :supplier_notes,
		rejection_reason = :rejection_reason,
		retryable = :retryable,
		response_token_used_at = :responded_at,
		responded_at = :responded_at,
		updated_at = now()
	WHERE id = :order_id
		AND response_token_used_at IS NULL
		AND status = ANY(:from_statuses)`

	result, err := os.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return false, fmt.Errorf("failed to apply order response: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected == 1, nil
}

// ApplyBulkResponse rewrites the order and all its material lines in one
// transaction. Returns false without writing anything when the guarded
// order update misses, meaning the token was already spent or the state
// moved underneath the caller.
func (os *OrderStore) ApplyBulkResponse(ctx context.Context, p ApplyBulkResponseParams) (bool, error) {
	tx, err := os.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin bulk response: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `UPDATE purchase_orders SET
		status = $1,
		total_cost = $2,
		committed_total = $3,
		financial_status = $4,
		supplier_notes = $5,
		response_token_used_at = $6,
		responded_at = $6,
		updated_at = now()
	WHERE id = $7
		AND response_token_used_at IS NULL
		AND status = ANY($8)`

	result, err := tx.ExecContext(ctx, orderQuery,
		p.NewStatus,
		p.TotalCost,
		p.CommittedTotal,
		p.FinancialStatus,
		p.SupplierNotes,
		p.RespondedAt,
		p.OrderID,
		pq.Array(p.FromStatuses),
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply bulk order transition: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return false, nil
	}

	lineQuery := `UPDATE purchase_order_materials SET
		decision = $1,
		unit_cost = COALESCE($2, unit_cost),
		quantity = COALESCE($3, quantity),
		total_cost = $4,
		flagged_for_reassignment = $5
	WHERE order_id = $6 AND material_request_id = $7`

	for _, line := range p.Lines {
		result, err := tx.ExecContext(ctx, lineQuery,
			line.Decision,
			line.UnitCost,
			line.Quantity,
			line.TotalCost,
			line.FlaggedForReassignment,
			p.OrderID,
			line.MaterialRequestID,
		)
		if err != nil {
			return false, fmt.Errorf("failed to update material line %s: %w", line.MaterialRequestID, err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return false, fmt.Errorf("material line %s not found on order %s", line.MaterialRequestID, p.OrderID)
		}
	}

	responseQuery := `INSERT INTO purchase_order_material_responses (
		id,
		order_id,
		material_request_id,
		decision,
		unit_cost,
		quantity,
		notes,
		rejection_reason
	) VALUES (
		:id,
		:order_id,
		:material_request_id,
		:decision,
		:unit_cost,
		:quantity,
		:notes,
		:rejection_reason
	)`

	for i := range p.Responses {
		r := &p.Responses[i]
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.OrderID = p.OrderID
		if _, err := tx.NamedExecContext(ctx, responseQuery, r); err != nil {
			return false, fmt.Errorf("failed to record material response %s: %w", r.MaterialRequestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit bulk response: %w", err)
	}

	log.Printf("Bulk response applied to order %s: %d material lines", p.OrderID, len(p.Lines))
	return true, nil
}

// ApproveModification is the buyer-side acceptance of a modified order.
// No token is involved; the guard is the order_modified status alone.
func (os *OrderStore) ApproveModification(ctx context.Context, orderID uuid.UUID) (bool, error) {
	query := `UPDATE purchase_orders SET
		status = $1,
		financial_status = $2,
		committed_total = total_cost,
		updated_at = now()
	WHERE id = $3 AND status = $4`

	result, err := os.db.ExecContext(ctx, query,
		OrderStatusAccepted,
		FinancialStatusCommitted,
		orderID,
		OrderStatusModified,
	)
	if err != nil {
		return false, fmt.Errorf("failed to approve order modification: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected == 1, nil
}

func (os *OrderStore) SumCommittedByProject(ctx context.Context, projectID uuid.UUID) (float64, error) {
	query := `SELECT COALESCE(SUM(committed_total), 0)
	FROM purchase_orders WHERE project_id = $1 AND financial_status = $2`

	var total float64
	if err := os.db.GetContext(ctx, &total, query, projectID, FinancialStatusCommitted); err != nil {
		return 0, fmt.Errorf("failed to sum committed orders: %w", err)
	}

	return total, nil
}
