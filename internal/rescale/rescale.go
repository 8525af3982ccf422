// Package rescale keeps phase allocations proportional to the project's
// direct construction cost. When a budget edit moves that total, every
// phase allocation is scaled by the same ratio so the distribution of
// money across phases survives the edit.
package rescale

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/audit"
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type Service struct {
	storage *store.Storage
	logger  *logger.Logger
	audit   *audit.Recorder
}

func NewService(storage *store.Storage, log *logger.Logger, rec *audit.Recorder) *Service {
	return &Service{storage: storage, logger: log, audit: rec}
}

// Change describes what happened to one phase during a rescale.
type Change struct {
	PhaseID      uuid.UUID `json:"phase_id"`
	Name         string    `json:"name"`
	OldAllocated float64   `json:"old_allocated"`
	NewAllocated float64   `json:"new_allocated"`
	Updated      bool      `json:"updated"`
	Failure      string    `json:"failure,omitempty"`
}

// RescalePhaseBudgets scales every phase allocation by newDCC/oldDCC.
// A zero previous direct cost leaves allocations untouched since no
// ratio can be derived. One phase failing to update does not stop the
// others; failures come back in the change list instead of as an error.
func (s *Service) RescalePhaseBudgets(ctx context.Context, projectID uuid.UUID, actor string, oldDCC, newDCC float64) ([]Change, error) {
	if oldDCC == 0 {
		s.logger.Warn("rescale", "project %s: previous direct cost is zero, phase allocations left as they are", projectID)
		return nil, nil
	}
	if newDCC <= 0 {
		s.logger.Warn("rescale", "project %s: new direct cost %0.2f is not positive, phase allocations left as they are", projectID, newDCC)
		return nil, nil
	}
	if money.Round2(oldDCC) == money.Round2(newDCC) {
		return nil, nil
	}

	phases, err := s.storage.Phases.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}

	changes := make([]Change, 0, len(phases))
	for _, phase := range phases {
		change := Change{PhaseID: phase.ID, Name: phase.Name, OldAllocated: phase.AllocatedBudget}

		if phase.AllocatedBudget == 0 {
			changes = append(changes, change)
			continue
		}

		change.NewAllocated = money.Scale(phase.AllocatedBudget, newDCC, oldDCC)

		if err := s.storage.Phases.UpdateAllocatedBudget(ctx, phase.ID, change.NewAllocated); err != nil {
			change.Failure = err.Error()
			s.logger.Error("rescale", "project %s phase %s: allocation update failed: %v", projectID, phase.ID, err)
			changes = append(changes, change)
			continue
		}

		change.Updated = true
		changes = append(changes, change)
		s.audit.Record(actor, "phase_rescaled", "phase", phase.ID.String(), change)
	}

	s.logger.Info("rescale", "project %s: direct cost %0.2f -> %0.2f, %d phases considered", projectID, oldDCC, newDCC, len(changes))
	return changes, nil
}
