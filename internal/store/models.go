package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Purchase order response states.
var (
	OrderStatusSent               = "order_sent"
	OrderStatusModified           = "order_modified"
	OrderStatusAccepted           = "order_accepted"
	OrderStatusRejected           = "order_rejected"
	OrderStatusPartiallyResponded = "order_partially_responded"
)

// Per-material decisions on bulk orders.
var (
	DecisionPending  = "pending"
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
	DecisionModified = "modified"
)

var (
	FinancialStatusUncommitted = "uncommitted"
	FinancialStatusCommitted   = "committed"
)

var (
	TransferStatusPending  = "pending"
	TransferStatusApproved = "approved"
	TransferStatusRejected = "rejected"
)

// Project represents the 'projects' table. The budget column holds the
// raw budget document; its shape is interpreted by the budget package.
type Project struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	CreatedBy string          `db:"created_by" json:"created_by"`
	Budget    json.RawMessage `db:"budget" json:"budget"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Phase represents the 'phases' table.
type Phase struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ProjectID       uuid.UUID `db:"project_id" json:"project_id"`
	Name            string    `db:"name" json:"name"`
	AllocatedBudget float64   `db:"allocated_budget" json:"allocated_budget"`
	CommittedCost   float64   `db:"committed_cost" json:"committed_cost"`
	ActualSpend     float64   `db:"actual_spend" json:"actual_spend"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ProjectFinances is the materialized capital ledger row for a project.
// capital_balance is derived in the database from invested minus used.
type ProjectFinances struct {
	ProjectID      uuid.UUID `db:"project_id" json:"project_id"`
	TotalInvested  float64   `db:"total_invested" json:"total_invested"`
	TotalUsed      float64   `db:"total_used" json:"total_used"`
	CommittedCost  float64   `db:"committed_cost" json:"committed_cost"`
	CapitalBalance float64   `db:"capital_balance" json:"capital_balance"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PurchaseOrder represents the 'purchase_orders' table. The response token
// fields gate supplier responses and never leave the API.
type PurchaseOrder struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	ProjectID              uuid.UUID  `db:"project_id" json:"project_id"`
	PhaseID                *uuid.UUID `db:"phase_id" json:"phase_id,omitempty"`
	Supplier               string     `db:"supplier" json:"supplier"`
	Description            string     `db:"description" json:"description"`
	Status                 string     `db:"status" json:"status"`
	IsBulkOrder            bool       `db:"is_bulk_order" json:"is_bulk_order"`
	Quantity               float64    `db:"quantity" json:"quantity"`
	UnitCost               *float64   `db:"unit_cost" json:"unit_cost,omitempty"`
	TotalCost              float64    `db:"total_cost" json:"total_cost"`
	CommittedTotal         float64    `db:"committed_total" json:"committed_total"`
	FinancialStatus        string     `db:"financial_status" json:"financial_status"`
	ResponseToken          string     `db:"response_token" json:"-"`
	ResponseTokenExpiresAt time.Time  `db:"response_token_expires_at" json:"-"`
	ResponseTokenUsedAt    *time.Time `db:"response_token_used_at" json:"-"`
	SupplierNotes          string     `db:"supplier_notes" json:"supplier_notes,omitempty"`
	RejectionReason        string     `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Retryable              *bool      `db:"retryable" json:"retryable,omitempty"`
	RespondedAt            *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`

	Materials []OrderMaterial `db:"-" json:"materials,omitempty"`
}

// OrderMaterial represents the 'purchase_order_materials' table, one line
// per requested material on a bulk order.
type OrderMaterial struct {
	ID                     uuid.UUID `db:"id" json:"id"`
	OrderID                uuid.UUID `db:"order_id" json:"order_id"`
	MaterialRequestID      string    `db:"material_request_id" json:"material_request_id"`
	Description            string    `db:"description" json:"description"`
	Quantity               float64   `db:"quantity" json:"quantity"`
	UnitCost               *float64  `db:"unit_cost" json:"unit_cost,omitempty"`
	TotalCost              float64   `db:"total_cost" json:"total_cost"`
	Decision               string    `db:"decision" json:"decision"`
	FlaggedForReassignment bool      `db:"flagged_for_reassignment" json:"flagged_for_reassignment"`
}

// OrderMaterialResponse represents the 'purchase_order_material_responses'
// table: what the supplier said about one material line, kept separate
// from the line itself for history.
type OrderMaterialResponse struct {
	ID                uuid.UUID `db:"id" json:"id"`
	OrderID           uuid.UUID `db:"order_id" json:"order_id"`
	MaterialRequestID string    `db:"material_request_id" json:"material_request_id"`
	Decision          string    `db:"decision" json:"decision"`
	UnitCost          *float64  `db:"unit_cost" json:"unit_cost,omitempty"`
	Quantity          *float64  `db:"quantity" json:"quantity,omitempty"`
	Notes             string    `db:"notes" json:"notes,omitempty"`
	RejectionReason   string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// BudgetTransfer represents the 'budget_transfers' table.
type BudgetTransfer struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ProjectID    uuid.UUID  `db:"project_id" json:"project_id"`
	FromCategory string     `db:"from_category" json:"from_category"`
	ToCategory   string     `db:"to_category" json:"to_category"`
	Amount       float64    `db:"amount" json:"amount"`
	Status       string     `db:"status" json:"status"`
	RequestedBy  string     `db:"requested_by" json:"requested_by"`
	DecidedBy    *string    `db:"decided_by" json:"decided_by,omitempty"`
	Note         string     `db:"note" json:"note,omitempty"`
	DecidedAt    *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Expense represents the 'expenses' table, the source of truth for
// actual spend.
type Expense struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ProjectID   uuid.UUID  `db:"project_id" json:"project_id"`
	PhaseID     *uuid.UUID `db:"phase_id" json:"phase_id,omitempty"`
	Category    string     `db:"category" json:"category"`
	Description string     `db:"description" json:"description"`
	Amount      float64    `db:"amount" json:"amount"`
	IncurredOn  time.Time  `db:"incurred_on" json:"incurred_on"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Investment represents the 'investments' table, the source of truth for
// invested capital.
type Investment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProjectID  uuid.UUID `db:"project_id" json:"project_id"`
	Investor   string    `db:"investor" json:"investor"`
	Amount     float64   `db:"amount" json:"amount"`
	InvestedOn time.Time `db:"invested_on" json:"invested_on"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditEntry represents the 'audit_entries' table.
type AuditEntry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Actor      string          `db:"actor" json:"actor"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   string          `db:"entity_id" json:"entity_id"`
	Detail     json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// CategoryTotal is an aggregate of expenses grouped by category.
type CategoryTotal struct {
	Category string  `db:"category" json:"category"`
	Total    float64 `db:"total" json:"total"`
}

// DailyTotal is one day of project spend, used for burn rate analysis.
type DailyTotal struct {
	Day   time.Time `db:"day" json:"day"`
	Total float64   `db:"total" json:"total"`
}
