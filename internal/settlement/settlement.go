// Package settlement runs the purchase order lifecycle: sending orders
// to suppliers, taking their single-use-token responses, and turning
// accepted orders into capital commitments. Every state transition is a
// guarded update in the store, so concurrent responses cannot double
// apply.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Victorkib/kisheka-construction-sub007/internal/audit"
	"github.com/Victorkib/kisheka-construction-sub007/internal/ledger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/notify"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

var (
	ErrTokenInvalid           = errors.New("response token does not match")
	ErrTokenExpired           = errors.New("response token has expired")
	ErrTokenAlreadyUsed       = errors.New("response token was already used")
	ErrOrderNotRespondable    = errors.New("order is not awaiting a supplier response")
	ErrModificationNotPending = errors.New("order has no pending modification")
	ErrNotesRequired          = errors.New("supplier notes are required")
	ErrReasonRequired         = errors.New("a rejection reason is required")
	ErrInsufficientCapital    = errors.New("insufficient available capital")
	ErrInvalidOrder           = errors.New("invalid order")
	ErrInvalidResponse        = errors.New("invalid response")
	ErrNotBulkOrder           = errors.New("order has no material lines")
	ErrLineResponsesRequired  = errors.New("bulk orders take per-material responses")
)

// Supplier response actions on single-line orders.
var (
	ActionAccept = "accept"
	ActionReject = "reject"
	ActionModify = "modify"
)

// RecalcEnqueuer schedules a full financial recalculation for a project.
type RecalcEnqueuer interface {
	Enqueue(projectID uuid.UUID) bool
}

type Service struct {
	storage  *store.Storage
	ledger   *ledger.Service
	logger   *logger.Logger
	audit    *audit.Recorder
	recalc   RecalcEnqueuer
	notifier notify.Notifier
	tokenTTL time.Duration
	now      func() time.Time
}

type Config struct {
	Storage  *store.Storage
	Ledger   *ledger.Service
	Logger   *logger.Logger
	Audit    *audit.Recorder
	Recalc   RecalcEnqueuer
	Notifier notify.Notifier
	TokenTTL time.Duration
}

func NewService(cfg Config) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &Service{
		storage:  cfg.Storage,
		ledger:   cfg.Ledger,
		logger:   cfg.Logger,
		audit:    cfg.Audit,
		recalc:   cfg.Recalc,
		notifier: cfg.Notifier,
		tokenTTL: ttl,
		now:      time.Now,
	}
}

// MaterialRequest is one line of a bulk order as the buyer drafts it.
type MaterialRequest struct {
	MaterialRequestID string  `json:"material_request_id"`
	Description       string  `json:"description"`
	Quantity          float64 `json:"quantity"`
	UnitCost          float64 `json:"unit_cost"`
}

// SendOrderCommand drafts a purchase order. Materials non-empty makes it
// a bulk order; otherwise Quantity and UnitCost describe a single line.
type SendOrderCommand struct {
	ProjectID   uuid.UUID
	PhaseID     *uuid.UUID
	Supplier    string
	Description string
	Quantity    float64
	UnitCost    float64
	Materials   []MaterialRequest
	RequestedBy string
}

// SendOrder validates the draft against available capital, mints the
// response token and persists the order as order_sent. The token is on
// the returned order; this is the only moment it leaves the engine.
// Warnings carry non-blocking notes such as capital not being set.
func (s *Service) SendOrder(ctx context.Context, cmd SendOrderCommand) (*store.PurchaseOrder, []string, error) {
	if strings.TrimSpace(cmd.Supplier) == "" {
		return nil, nil, fmt.Errorf("%w: supplier is required", ErrInvalidOrder)
	}

	if _, err := s.storage.Projects.GetByID(ctx, cmd.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load project: %w", err)
	}
	if cmd.PhaseID != nil {
		phase, err := s.storage.Phases.GetByID(ctx, *cmd.PhaseID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil, fmt.Errorf("%w: phase %s does not exist", ErrInvalidOrder, cmd.PhaseID)
			}
			return nil, nil, fmt.Errorf("failed to load phase: %w", err)
		}
		if phase.ProjectID != cmd.ProjectID {
			return nil, nil, fmt.Errorf("%w: phase %s belongs to another project", ErrInvalidOrder, cmd.PhaseID)
		}
	}

	order := &store.PurchaseOrder{
		ID:              uuid.New(),
		ProjectID:       cmd.ProjectID,
		PhaseID:         cmd.PhaseID,
		Supplier:        cmd.Supplier,
		Description:     cmd.Description,
		Status:          store.OrderStatusSent,
		FinancialStatus: store.FinancialStatusUncommitted,
	}

	if len(cmd.Materials) > 0 {
		order.IsBulkOrder = true
		seen := make(map[string]bool, len(cmd.Materials))
		var totals []float64
		for _, m := range cmd.Materials {
			if strings.TrimSpace(m.MaterialRequestID) == "" {
				return nil, nil, fmt.Errorf("%w: material line is missing a request id", ErrInvalidOrder)
			}
			if seen[m.MaterialRequestID] {
				return nil, nil, fmt.Errorf("%w: duplicate material line %s", ErrInvalidOrder, m.MaterialRequestID)
			}
			seen[m.MaterialRequestID] = true
			if m.Quantity <= 0 {
				return nil, nil, fmt.Errorf("%w: material %s quantity must be positive", ErrInvalidOrder, m.MaterialRequestID)
			}
			if m.UnitCost < 0 {
				return nil, nil, fmt.Errorf("%w: material %s unit cost cannot be negative", ErrInvalidOrder, m.MaterialRequestID)
			}

			unitCost := m.UnitCost
			lineTotal := money.LineTotal(m.Quantity, m.UnitCost)
			totals = append(totals, lineTotal)
			order.Materials = append(order.Materials, store.OrderMaterial{
				MaterialRequestID: m.MaterialRequestID,
				Description:       m.Description,
				Quantity:          m.Quantity,
				UnitCost:          &unitCost,
				TotalCost:         lineTotal,
				Decision:          store.DecisionPending,
			})
		}
		order.TotalCost = money.Sum(totals...)
	} else {
		if cmd.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
		}
		if cmd.UnitCost < 0 {
			return nil, nil, fmt.Errorf("%w: unit cost cannot be negative", ErrInvalidOrder)
		}
		unitCost := cmd.UnitCost
		order.Quantity = cmd.Quantity
		order.UnitCost = &unitCost
		order.TotalCost = money.LineTotal(cmd.Quantity, cmd.UnitCost)
	}

	availability, err := s.ledger.ValidateCapitalAvailability(ctx, cmd.ProjectID, order.TotalCost)
	if err != nil {
		return nil, nil, err
	}
	if !availability.Sufficient {
		return nil, nil, fmt.Errorf("%w: available %0.2f, required %0.2f, short %0.2f",
			ErrInsufficientCapital, availability.Available, availability.Required, availability.Shortfall)
	}
	var warnings []string
	if w := availability.Warning(); w != "" {
		warnings = append(warnings, w)
	}

	token, err := NewResponseToken()
	if err != nil {
		return nil, nil, err
	}
	order.ResponseToken = token
	order.ResponseTokenExpiresAt = s.now().Add(s.tokenTTL)

	if err := s.storage.Orders.Insert(ctx, order); err != nil {
		return nil, nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.logger.Info("settlement", "order %s sent to %q for %0.2f (%d material lines)",
		order.ID, order.Supplier, order.TotalCost, len(order.Materials))
	s.audit.Record(cmd.RequestedBy, "order_sent", "purchase_order", order.ID.String(), map[string]any{
		"supplier":   order.Supplier,
		"total_cost": order.TotalCost,
		"bulk":       order.IsBulkOrder,
	})
	if s.notifier != nil {
		s.notifier.OrderSent(order, token)
	}

	return order, warnings, nil
}

// SupplierResponse is a supplier's answer to a single-line order.
type SupplierResponse struct {
	OrderID         uuid.UUID
	Token           string
	Action          string
	UnitCost        *float64
	Quantity        *float64
	Notes           string
	RejectionReason string
}

// ProcessSupplierResponse applies one supplier response. The token is
// spent and the status moved in a single guarded update; whichever of
// two concurrent responses loses the race gets ErrTokenAlreadyUsed.
// Accepting re-checks available capital at response time, so an order
// that was affordable when sent can still bounce here. Warnings carry
// non-blocking notes such as capital not being set.
func (s *Service) ProcessSupplierResponse(ctx context.Context, resp SupplierResponse) (*store.PurchaseOrder, []string, error) {
	order, err := s.storage.Orders.GetByID(ctx, resp.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order.IsBulkOrder {
		return nil, nil, ErrLineResponsesRequired
	}
	if err := s.validateToken(order, resp.Token); err != nil {
		return nil, nil, err
	}

	params := store.ApplyResponseParams{
		OrderID:       order.ID,
		FromStatuses:  pq.StringArray{store.OrderStatusSent},
		SupplierNotes: resp.Notes,
		RespondedAt:   s.now().UTC(),
	}
	var warnings []string

	switch resp.Action {
	case ActionAccept:
		if resp.Quantity != nil {
			return nil, nil, fmt.Errorf("%w: an acceptance cannot change quantity; respond with a modification", ErrInvalidResponse)
		}
		var unitCost float64
		if order.UnitCost != nil {
			unitCost = *order.UnitCost
		}
		if resp.UnitCost != nil {
			unitCost = *resp.UnitCost
		}
		if unitCost <= 0 {
			return nil, nil, fmt.Errorf("%w: a positive unit cost is required to accept the order", ErrInvalidResponse)
		}
		finalTotal := money.LineTotal(order.Quantity, unitCost)

		availability, err := s.ledger.ValidateCapitalAvailability(ctx, order.ProjectID, finalTotal)
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

		params.NewStatus = store.OrderStatusAccepted
		params.UnitCost = resp.UnitCost
		params.TotalCost = finalTotal
		params.CommittedTotal = finalTotal
		params.FinancialStatus = store.FinancialStatusCommitted

	case ActionModify:
		if resp.UnitCost == nil && resp.Quantity == nil {
			return nil, nil, fmt.Errorf("%w: a modification must change unit cost or quantity", ErrInvalidResponse)
		}
		quantity := order.Quantity
		if resp.Quantity != nil {
			if *resp.Quantity <= 0 {
				return nil, nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidResponse)
			}
			quantity = *resp.Quantity
		}
		var unitCost float64
		if order.UnitCost != nil {
			unitCost = *order.UnitCost
		}
		if resp.UnitCost != nil {
			unitCost = *resp.UnitCost
		}
		if unitCost <= 0 {
			return nil, nil, fmt.Errorf("%w: a modification must resolve to a positive unit cost", ErrInvalidResponse)
		}
		params.NewStatus = store.OrderStatusModified
		params.UnitCost = resp.UnitCost
		params.Quantity = resp.Quantity
		params.TotalCost = money.LineTotal(quantity, unitCost)
		params.FinancialStatus = store.FinancialStatusUncommitted

	case ActionReject:
		if strings.TrimSpace(resp.Notes) == "" {
			return nil, nil, ErrNotesRequired
		}
		if strings.TrimSpace(resp.RejectionReason) == "" {
			return nil, nil, ErrReasonRequired
		}
		retryable := RetryableRejection(resp.RejectionReason)
		params.NewStatus = store.OrderStatusRejected
		params.TotalCost = order.TotalCost
		params.FinancialStatus = store.FinancialStatusUncommitted
		params.RejectionReason = resp.RejectionReason
		params.Retryable = &retryable

	default:
		return nil, nil, fmt.Errorf("%w: unknown action %q", ErrInvalidResponse, resp.Action)
	}

	applied, err := s.storage.Orders.ApplyResponse(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	if !applied {
		return nil, nil, s.classifyMiss(ctx, order.ID)
	}

	if params.CommittedTotal > 0 {
		s.commitFunds(ctx, order, params.CommittedTotal)
	}
	s.recalc.Enqueue(order.ProjectID)

	updated, err := s.storage.Orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("settlement", "order %s: supplier %q responded %s", updated.ID, updated.Supplier, updated.Status)
	s.audit.Record(updated.Supplier, "order_response", "purchase_order", updated.ID.String(), map[string]any{
		"action":          resp.Action,
		"status":          updated.Status,
		"committed_total": updated.CommittedTotal,
	})
	if s.notifier != nil {
		s.notifier.OrderResponded(updated)
	}

	return updated, warnings, nil
}

// ApproveModification is the buyer accepting a supplier's modified
// terms. The modified total is validated against available capital and
// then becomes a commitment; the guarded store update keeps two
// concurrent approvals from committing twice.
func (s *Service) ApproveModification(ctx context.Context, orderID uuid.UUID, approvedBy string) (*store.PurchaseOrder, []string, error) {
	order, err := s.storage.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status != store.OrderStatusModified {
		return nil, nil, ErrModificationNotPending
	}

	availability, err := s.ledger.ValidateCapitalAvailability(ctx, order.ProjectID, order.TotalCost)
	if err != nil {
		return nil, nil, err
	}
	if !availability.Sufficient {
		return nil, nil, fmt.Errorf("%w: available %0.2f, required %0.2f, short %0.2f",
			ErrInsufficientCapital, availability.Available, availability.Required, availability.Shortfall)
	}
	var warnings []string
	if w := availability.Warning(); w != "" {
		warnings = append(warnings, w)
	}

	approved, err := s.storage.Orders.ApproveModification(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !approved {
		return nil, nil, ErrModificationNotPending
	}

	updated, err := s.storage.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	s.commitFunds(ctx, updated, updated.CommittedTotal)
	s.recalc.Enqueue(updated.ProjectID)

	s.logger.Info("settlement", "order %s: modification approved by %s, %0.2f committed", updated.ID, approvedBy, updated.CommittedTotal)
	s.audit.Record(approvedBy, "order_modification_approved", "purchase_order", updated.ID.String(), map[string]any{
		"committed_total": updated.CommittedTotal,
	})
	if s.notifier != nil {
		s.notifier.ModificationApproved(updated)
	}

	return updated, warnings, nil
}

// classifyMiss explains a guarded update that matched zero rows by
// re-reading the order.
func (s *Service) classifyMiss(ctx context.Context, orderID uuid.UUID) error {
	current, err := s.storage.Orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if current.ResponseTokenUsedAt != nil {
		return ErrTokenAlreadyUsed
	}
	return ErrOrderNotRespondable
}

// commitFunds records an accepted order's total against the project and
// phase ledgers. Failures here are logged, not returned: the response
// has already landed and the recalculation cascade restores consistency.
func (s *Service) commitFunds(ctx context.Context, order *store.PurchaseOrder, amount float64) {
	if amount == 0 {
		return
	}
	if err := s.ledger.UpdateCommittedCost(ctx, order.ProjectID, amount); err != nil {
		s.logger.Error("settlement", "order %s: project committed update failed: %v", order.ID, err)
	}
	if order.PhaseID != nil {
		if err := s.storage.Phases.IncrementCommitted(ctx, *order.PhaseID, amount); err != nil {
			s.logger.Error("settlement", "order %s: phase committed update failed: %v", order.ID, err)
		}
	}
}
