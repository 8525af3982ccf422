// Package ledger answers capital questions for a project: what investors
// put in, what has been spent, and what open purchase orders have already
// committed. Reads go through the materialized project_finances row,
// which the recalculation cascade keeps consistent with the source
// tables.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type Service struct {
	storage *store.Storage
	logger  *logger.Logger
}

func NewService(storage *store.Storage, log *logger.Logger) *Service {
	return &Service{storage: storage, logger: log}
}

// Availability is the answer to "can this project afford another
// commitment of Required". Available is invested minus used minus
// committed; CapitalNotSet marks projects with no recorded investment,
// which pass the check without enforcing anything.
type Availability struct {
	ProjectID     uuid.UUID `json:"project_id"`
	CapitalNotSet bool      `json:"capital_not_set"`
	TotalInvested float64   `json:"total_invested"`
	TotalUsed     float64   `json:"total_used"`
	CommittedCost float64   `json:"committed_cost"`
	Available     float64   `json:"available"`
	Required      float64   `json:"required"`
	Shortfall     float64   `json:"shortfall"`
	Sufficient    bool      `json:"sufficient"`
}

// Warning returns the caller-facing note when the check passed without
// being enforced, empty otherwise.
func (a *Availability) Warning() string {
	if a.CapitalNotSet {
		return "project capital is not set; the commitment was allowed without an availability check"
	}
	return ""
}

// Ensure creates the finances row for a project if it does not exist
// yet. Safe to call on every read path.
func (s *Service) Ensure(ctx context.Context, projectID uuid.UUID) error {
	if err := s.storage.Finances.Ensure(ctx, projectID); err != nil {
		return fmt.Errorf("failed to ensure finances row: %w", err)
	}
	return nil
}

// Snapshot returns the current finances row, creating it lazily.
func (s *Service) Snapshot(ctx context.Context, projectID uuid.UUID) (*store.ProjectFinances, error) {
	if err := s.Ensure(ctx, projectID); err != nil {
		return nil, err
	}
	fin, err := s.storage.Finances.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read finances: %w", err)
	}
	return fin, nil
}

// ValidateCapitalAvailability checks whether the project can take on
// another commitment of the given size. Projects with zero recorded
// investment pass with CapitalNotSet so that early orders are not
// blocked before funding is entered.
func (s *Service) ValidateCapitalAvailability(ctx context.Context, projectID uuid.UUID, required float64) (*Availability, error) {
	fin, err := s.Snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	a := &Availability{
		ProjectID:     projectID,
		TotalInvested: fin.TotalInvested,
		TotalUsed:     fin.TotalUsed,
		CommittedCost: fin.CommittedCost,
		Required:      money.Round2(required),
	}

	if fin.TotalInvested == 0 {
		a.CapitalNotSet = true
		a.Sufficient = true
		return a, nil
	}

	a.Available = money.Sum(fin.TotalInvested, -fin.TotalUsed, -fin.CommittedCost)
	if a.Available < a.Required {
		a.Shortfall = money.Sum(a.Required, -a.Available)
		return a, nil
	}

	a.Sufficient = true
	return a, nil
}

// UpdateCommittedCost adjusts the project's committed total by delta,
// positive when an order is accepted, negative when a commitment is
// released. The increment is atomic in the store; callers do not need to
// read first.
func (s *Service) UpdateCommittedCost(ctx context.Context, projectID uuid.UUID, delta float64) error {
	if delta == 0 {
		return nil
	}
	if err := s.Ensure(ctx, projectID); err != nil {
		return err
	}
	if err := s.storage.Finances.IncrementCommitted(ctx, projectID, money.Round2(delta)); err != nil {
		return fmt.Errorf("failed to adjust committed cost: %w", err)
	}
	s.logger.Debug("ledger", "project %s committed cost adjusted by %0.2f", projectID, delta)
	return nil
}

// CurrentTotalUsed returns total actual spend. It prefers the ledger row
// and falls back to summing expenses when no row exists yet.
func (s *Service) CurrentTotalUsed(ctx context.Context, projectID uuid.UUID) (float64, error) {
	fin, err := s.storage.Finances.Get(ctx, projectID)
	if err == nil {
		return fin.TotalUsed, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("failed to read finances: %w", err)
	}

	total, err := s.storage.Expenses.SumByProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}
