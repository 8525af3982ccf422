package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

// LineResponse is the supplier's answer for one material line.
type LineResponse struct {
	MaterialRequestID string   `json:"material_request_id"`
	Decision          string   `json:"decision"`
	UnitCost          *float64 `json:"unit_cost,omitempty"`
	Quantity          *float64 `json:"quantity,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	RejectionReason   string   `json:"rejection_reason,omitempty"`
}

// BulkResponse is a supplier's full answer to a bulk order. Lines may
// cover a subset of the order's materials; uncovered lines stay pending.
type BulkResponse struct {
	OrderID uuid.UUID
	Token   string
	Notes   string
	Lines   []LineResponse
}

// ProcessBulkResponse applies a supplier's per-material response in two
// phases: every line is validated against the order before anything is
// written, then the whole plan lands in one transaction. A response with
// one bad line changes nothing. Only the accepted subset is checked
// against available capital and committed.
func (s *Service) ProcessBulkResponse(ctx context.Context, resp BulkResponse) (*store.PurchaseOrder, []string, error) {
	order, err := s.storage.Orders.GetByID(ctx, resp.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if !order.IsBulkOrder {
		return nil, nil, ErrNotBulkOrder
	}
	if err := s.validateToken(order, resp.Token); err != nil {
		return nil, nil, err
	}
	if len(resp.Lines) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one line response is required", ErrInvalidResponse)
	}

	byRequest := make(map[string]store.OrderMaterial, len(order.Materials))
	for _, m := range order.Materials {
		byRequest[m.MaterialRequestID] = m
	}

	plan := store.ApplyBulkResponseParams{
		OrderID:       order.ID,
		FromStatuses:  []string{store.OrderStatusSent},
		SupplierNotes: resp.Notes,
		RespondedAt:   s.now().UTC(),
	}

	seen := make(map[string]bool, len(resp.Lines))
	for _, line := range resp.Lines {
		material, ok := byRequest[line.MaterialRequestID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown material line %q", ErrInvalidResponse, line.MaterialRequestID)
		}
		if seen[line.MaterialRequestID] {
			return nil, nil, fmt.Errorf("%w: duplicate response for material line %q", ErrInvalidResponse, line.MaterialRequestID)
		}
		seen[line.MaterialRequestID] = true

		update := store.BulkLineUpdate{
			MaterialRequestID: line.MaterialRequestID,
			Decision:          line.Decision,
		}

		switch line.Decision {
		case store.DecisionAccepted:
			if line.Quantity != nil {
				return nil, nil, fmt.Errorf("%w: accepted line %q cannot change quantity; respond with a modification", ErrInvalidResponse, line.MaterialRequestID)
			}
			var unitCost float64
			if material.UnitCost != nil {
				unitCost = *material.UnitCost
			}
			if line.UnitCost != nil {
				unitCost = *line.UnitCost
			}
			if unitCost <= 0 {
				return nil, nil, fmt.Errorf("%w: accepted line %q needs a positive unit cost", ErrInvalidResponse, line.MaterialRequestID)
			}
			update.UnitCost = line.UnitCost
			update.TotalCost = money.LineTotal(material.Quantity, unitCost)

		case store.DecisionModified:
			if line.UnitCost == nil && line.Quantity == nil {
				return nil, nil, fmt.Errorf("%w: modified line %q must change unit cost or quantity", ErrInvalidResponse, line.MaterialRequestID)
			}
			quantity := material.Quantity
			if line.Quantity != nil {
				if *line.Quantity <= 0 {
					return nil, nil, fmt.Errorf("%w: line %q quantity must be positive", ErrInvalidResponse, line.MaterialRequestID)
				}
				quantity = *line.Quantity
			}
			var unitCost float64
			if material.UnitCost != nil {
				unitCost = *material.UnitCost
			}
			if line.UnitCost != nil {
				unitCost = *line.UnitCost
			}
			if unitCost <= 0 {
				return nil, nil, fmt.Errorf("%w: modified line %q must resolve to a positive unit cost", ErrInvalidResponse, line.MaterialRequestID)
			}
			update.UnitCost = line.UnitCost
			update.Quantity = line.Quantity
			update.TotalCost = money.LineTotal(quantity, unitCost)

		case store.DecisionRejected:
			if strings.TrimSpace(line.RejectionReason) == "" {
				return nil, nil, fmt.Errorf("%w for rejected line %q", ErrReasonRequired, line.MaterialRequestID)
			}
			update.TotalCost = material.TotalCost
			update.FlaggedForReassignment = true

		default:
			return nil, nil, fmt.Errorf("%w: unknown decision %q for line %q", ErrInvalidResponse, line.Decision, line.MaterialRequestID)
		}

		plan.Lines = append(plan.Lines, update)
		plan.Responses = append(plan.Responses, store.OrderMaterialResponse{
			MaterialRequestID: line.MaterialRequestID,
			Decision:          line.Decision,
			UnitCost:          line.UnitCost,
			Quantity:          line.Quantity,
			Notes:             line.Notes,
			RejectionReason:   line.RejectionReason,
		})
	}

	updates := make(map[string]store.BulkLineUpdate, len(plan.Lines))
	for _, u := range plan.Lines {
		updates[u.MaterialRequestID] = u
	}

	var accepted, rejected, modified, pending int
	var totals, committed []float64
	for _, material := range order.Materials {
		u, responded := updates[material.MaterialRequestID]
		if !responded {
			pending++
			totals = append(totals, material.TotalCost)
			continue
		}
		totals = append(totals, u.TotalCost)
		switch u.Decision {
		case store.DecisionAccepted:
			accepted++
			committed = append(committed, u.TotalCost)
		case store.DecisionRejected:
			rejected++
		case store.DecisionModified:
			modified++
		}
	}

	switch {
	case accepted == len(order.Materials):
		plan.NewStatus = store.OrderStatusAccepted
	case rejected == len(order.Materials):
		plan.NewStatus = store.OrderStatusRejected
	default:
		plan.NewStatus = store.OrderStatusPartiallyResponded
	}

	plan.TotalCost = money.Sum(totals...)
	plan.CommittedTotal = money.Sum(committed...)
	if plan.CommittedTotal > 0 {
		plan.FinancialStatus = store.FinancialStatusCommitted
	} else {
		plan.FinancialStatus = store.FinancialStatusUncommitted
	}

	var warnings []string
	if plan.CommittedTotal > 0 {
		availability, err := s.ledger.ValidateCapitalAvailability(ctx, order.ProjectID, plan.CommittedTotal)
		if err != nil {
			return nil, nil, err
		}
		if !availability.Sufficient {
			return nil, nil, fmt.Errorf("%w: available %0.2f, required %0.2f, short %0.2f",
				ErrInsufficientCapital, availability.Available, availability.Required, availability.Shortfall)
		}
		if w := availability.Warning(); w != "" {
			warnings = append(warnings, w)
		}
	}

	applied, err := s.storage.Orders.ApplyBulkResponse(ctx, plan)
	if err != nil {
		return nil, nil, err
	}
	if !applied {
		return nil, nil, s.classifyMiss(ctx, order.ID)
	}

	if plan.CommittedTotal > 0 {
		s.commitFunds(ctx, order, plan.CommittedTotal)
	}
	s.recalc.Enqueue(order.ProjectID)

	updated, err := s.storage.Orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("settlement", "order %s: bulk response, %d accepted / %d rejected / %d modified / %d pending",
		updated.ID, accepted, rejected, modified, pending)
	s.audit.Record(updated.Supplier, "order_bulk_response", "purchase_order", updated.ID.String(), map[string]any{
		"status":          updated.Status,
		"accepted":        accepted,
		"rejected":        rejected,
		"modified":        modified,
		"pending":         pending,
		"committed_total": updated.CommittedTotal,
	})
	if s.notifier != nil {
		s.notifier.OrderResponded(updated)
	}

	return updated, warnings, nil
}
