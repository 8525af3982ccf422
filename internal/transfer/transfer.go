// Package transfer moves allocation between direct cost categories
// through a request/approve workflow. The balance is checked when the
// request is filed and checked again under lock when it is approved, so
// two transfers draining the same category cannot both land.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/audit"
	"github.com/Victorkib/kisheka-construction-sub007/internal/budget"
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

var ErrInvalidTransfer = errors.New("invalid transfer")

type Service struct {
	storage *store.Storage
	logger  *logger.Logger
	audit   *audit.Recorder
	policy  budget.Policy
}

func NewService(storage *store.Storage, log *logger.Logger, rec *audit.Recorder, policy budget.Policy) *Service {
	return &Service{storage: storage, logger: log, audit: rec, policy: policy}
}

type RequestCommand struct {
	ProjectID    uuid.UUID
	FromCategory string
	ToCategory   string
	Amount       float64
	RequestedBy  string
	Note         string
}

// Request files a pending transfer. The source category must hold the
// amount right now; the decisive check happens again at approval.
func (s *Service) Request(ctx context.Context, cmd RequestCommand) (*store.BudgetTransfer, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	}
	if cmd.FromCategory == cmd.ToCategory {
		return nil, fmt.Errorf("%w: source and destination categories are the same", ErrInvalidTransfer)
	}

	project, err := s.storage.Projects.GetByID(ctx, cmd.ProjectID)
	if err != nil {
		return nil, err
	}

	enhanced, _, _, err := budget.Normalize(project.Budget, s.policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransfer, err)
	}

	// Dry run against a copy: surfaces unknown categories and an
	// insufficient source balance without touching the stored budget.
	probe := enhanced
	if err := budget.MoveCategory(&probe, cmd.FromCategory, cmd.ToCategory, cmd.Amount); err != nil {
		return nil, err
	}

	transfer := &store.BudgetTransfer{
		ID:           uuid.New(),
		ProjectID:    cmd.ProjectID,
		FromCategory: cmd.FromCategory,
		ToCategory:   cmd.ToCategory,
		Amount:       cmd.Amount,
		Status:       store.TransferStatusPending,
		RequestedBy:  cmd.RequestedBy,
		Note:         cmd.Note,
	}
	if err := s.storage.Transfers.Insert(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to persist transfer request: %w", err)
	}

	s.logger.Info("transfer", "project %s: %0.2f from %s to %s requested by %s",
		cmd.ProjectID, cmd.Amount, cmd.FromCategory, cmd.ToCategory, cmd.RequestedBy)
	s.audit.Record(cmd.RequestedBy, "transfer_requested", "budget_transfer", transfer.ID.String(), map[string]any{
		"from":   cmd.FromCategory,
		"to":     cmd.ToCategory,
		"amount": cmd.Amount,
	})

	return transfer, nil
}

// Approve applies a pending transfer to the project budget. The budget
// is re-read and the balance re-checked inside the store's transaction;
// a source category that was drained since the request fails the
// approval and the transfer stays pending.
func (s *Service) Approve(ctx context.Context, transferID uuid.UUID, decidedBy string) (*store.BudgetTransfer, []string, error) {
	transfer, err := s.storage.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	approved, err := s.storage.Transfers.Approve(ctx, transferID, decidedBy, func(raw []byte) ([]byte, error) {
		enhanced, shape, conversionWarnings, err := budget.Normalize(raw, s.policy)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, conversionWarnings...)
		if shape == budget.ShapeLegacy {
			warnings = append(warnings, "legacy budget was upgraded to apply the transfer")
		}

		if err := budget.MoveCategory(&enhanced, transfer.FromCategory, transfer.ToCategory, transfer.Amount); err != nil {
			return nil, err
		}
		return json.Marshal(enhanced)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("transfer", "transfer %s approved by %s", transferID, decidedBy)
	s.logger.Warnings("transfer", warnings)
	s.audit.Record(decidedBy, "transfer_approved", "budget_transfer", transferID.String(), map[string]any{
		"from":   approved.FromCategory,
		"to":     approved.ToCategory,
		"amount": approved.Amount,
	})

	return approved, warnings, nil
}

// Reject closes a pending transfer without touching the budget.
func (s *Service) Reject(ctx context.Context, transferID uuid.UUID, decidedBy, note string) (*store.BudgetTransfer, error) {
	rejected, err := s.storage.Transfers.Reject(ctx, transferID, decidedBy, note)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer", "transfer %s rejected by %s", transferID, decidedBy)
	s.audit.Record(decidedBy, "transfer_rejected", "budget_transfer", transferID.String(), map[string]any{
		"note": note,
	})

	return rejected, nil
}
