package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrTransferNotPending = errors.New("transfer is not pending")
)

type Storage struct {
	Projects interface {
		Insert(ctx context.Context, project *Project) error
		GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
		List(ctx context.Context) ([]Project, error)
		UpdateBudget(ctx context.Context, id uuid.UUID, budget []byte) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	Phases interface {
		Insert(ctx context.Context, phase *Phase) error
		GetByID(ctx context.Context, id uuid.UUID) (*Phase, error)
		ListByProject(ctx context.Context, projectID uuid.UUID) ([]Phase, error)
		UpdateAllocatedBudget(ctx context.Context, phaseID uuid.UUID, amount float64) error
		IncrementCommitted(ctx context.Context, phaseID uuid.UUID, delta float64) error
		RecomputeAggregates(ctx context.Context, projectID uuid.UUID) error
	}

	Finances interface {
		Ensure(ctx context.Context, projectID uuid.UUID) error
		Get(ctx context.Context, projectID uuid.UUID) (*ProjectFinances, error)
		IncrementCommitted(ctx context.Context, projectID uuid.UUID, delta float64) error
		Overwrite(ctx context.Context, f *ProjectFinances) error
		RecomputeFromSources(ctx context.Context, projectID uuid.UUID) (*ProjectFinances, error)
	}

	Orders interface {
		Insert(ctx context.Context, order *PurchaseOrder) error
		GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
		ListByProject(ctx context.Context, projectID uuid.UUID) ([]PurchaseOrder, error)
		ApplyResponse(ctx context.Context, p ApplyResponseParams) (bool, error)
		ApplyBulkResponse(ctx context.Context, p ApplyBulkResponseParams) (bool, error)
		ApproveModification(ctx context.Context, orderID uuid.UUID) (bool, error)
		SumCommittedByProject(ctx context.Context, projectID uuid.UUID) (float64, error)
	}

	Expenses interface {
		Insert(ctx context.Context, expense *Expense) error
		ListByProject(ctx context.Context, projectID uuid.UUID) ([]Expense, error)
		SumByProject(ctx context.Context, projectID uuid.UUID) (float64, error)
		SumByCategory(ctx context.Context, projectID uuid.UUID) ([]CategoryTotal, error)
		DailyTotals(ctx context.Context, projectID uuid.UUID) ([]DailyTotal, error)
	}

	Investments interface {
		Insert(ctx context.Context, investment *Investment) error
		ListByProject(ctx context.Context, projectID uuid.UUID) ([]Investment, error)
		SumByProject(ctx context.Context, projectID uuid.UUID) (float64, error)
	}

	Transfers interface {
		Insert(ctx context.Context, transfer *BudgetTransfer) error
		GetByID(ctx context.Context, id uuid.UUID) (*BudgetTransfer, error)
		ListByProject(ctx context.Context, projectID uuid.UUID) ([]BudgetTransfer, error)
		Approve(ctx context.Context, id uuid.UUID, decidedBy string, apply func(budget []byte) ([]byte, error)) (*BudgetTransfer, error)
		Reject(ctx context.Context, id uuid.UUID, decidedBy, note string) (*BudgetTransfer, error)
	}

	Audit interface {
		Insert(ctx context.Context, entry *AuditEntry) error
		ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]AuditEntry, error)
	}
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Projects:    &ProjectStore{db: db},
		Phases:      &PhaseStore{db: db},
		Finances:    &FinanceStore{db: db},
		Orders:      &OrderStore{db: db},
		Expenses:    &ExpenseStore{db: db},
		Investments: &InvestmentStore{db: db},
		Transfers:   &TransferStore{db: db},
		Audit:       &AuditStore{db: db},
	}
}
