package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/audit"
	"github.com/Victorkib/kisheka-construction-sub007/internal/ledger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/notify"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store/storetest"
)

type captureEnqueuer struct {
	calls []uuid.UUID
}

func (c *captureEnqueuer) Enqueue(projectID uuid.UUID) bool {
	c.calls = append(c.calls, projectID)
	return true
}

type testEnv struct {
	svc *Service
	mem *storetest.Memory
	st  *store.Storage
	enq *captureEnqueuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := storetest.New()
	st := mem.Storage()
	log := logger.New(logger.LevelError)

	rec := audit.NewRecorder(st.Audit, log, 256)
	rec.Start()
	t.Cleanup(rec.Shutdown)

	enq := &captureEnqueuer{}
	svc := NewService(Config{
		Storage:  st,
		Ledger:   ledger.NewService(st, log),
		Logger:   log,
		Audit:    rec,
		Recalc:   enq,
		Notifier: notify.NewLogNotifier(log),
		TokenTTL: time.Hour,
	})
	return &testEnv{svc: svc, mem: mem, st: st, enq: enq}
}

// createProject seeds a project, optionally with invested capital so that
// availability checks pass.
func (e *testEnv) createProject(t *testing.T, invested float64) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	project := &store.Project{
		ID:        uuid.New(),
		Name:      "Riverside Mall",
		CreatedBy: "alice",
		Budget:    json.RawMessage(`{"total": 500000}`),
	}
	if err := e.st.Projects.Insert(ctx, project); err != nil {
		t.Fatalf("insert project: %v", err)
	}
	if invested > 0 {
		err := e.st.Finances.Overwrite(ctx, &store.ProjectFinances{
			ProjectID:     project.ID,
			TotalInvested: invested,
		})
		if err != nil {
			t.Fatalf("seed finances: %v", err)
		}
	}
	return project.ID
}

func (e *testEnv) sendSingleOrder(t *testing.T, projectID uuid.UUID) *store.PurchaseOrder {
	t.Helper()
	order, _, err := e.svc.SendOrder(context.Background(), SendOrderCommand{
		ProjectID:   projectID,
		Supplier:    "Steelworks Ltd",
		Description: "rebar, 12mm",
		Quantity:    100,
		UnitCost:    25,
		RequestedBy: "alice",
	})
	if err != nil {
		t.Fatalf("SendOrder: %v", err)
	}
	return order
}

func ptr(v float64) *float64 { return &v }

func TestSendOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("single line order", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)

		order := env.sendSingleOrder(t, projectID)

		if order.Status != store.OrderStatusSent {
			t.Errorf("status = %q, want %q", order.Status, store.OrderStatusSent)
		}
		if order.FinancialStatus != store.FinancialStatusUncommitted {
			t.Errorf("financial status = %q, want %q", order.FinancialStatus, store.FinancialStatusUncommitted)
		}
		if order.TotalCost != 2500 {
			t.Errorf("total cost = %v, want 2500", order.TotalCost)
		}
		if order.ResponseToken == "" {
			t.Errorf("response token is empty")
		}
		if !order.ResponseTokenExpiresAt.After(time.Now()) {
			t.Errorf("token expiry %v is not in the future", order.ResponseTokenExpiresAt)
		}

		second := env.sendSingleOrder(t, projectID)
		if second.ResponseToken == order.ResponseToken {
			t.Errorf("two orders share a response token")
		}
	})

	t.Run("bulk order sums its lines", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)

		order, _, err := env.svc.SendOrder(ctx, SendOrderCommand{
			ProjectID: projectID,
			Supplier:  "BuildMart",
			Materials: []MaterialRequest{
				{MaterialRequestID: "mr-1", Description: "cement", Quantity: 200, UnitCost: 12.5},
				{MaterialRequestID: "mr-2", Description: "sand", Quantity: 30, UnitCost: 45},
			},
			RequestedBy: "alice",
		})
		if err != nil {
			t.Fatalf("SendOrder: %v", err)
		}
		if !order.IsBulkOrder {
			t.Errorf("isBulkOrder = false, want true")
		}
		if order.TotalCost != 3850 {
			t.Errorf("total cost = %v, want 3850", order.TotalCost)
		}
		if len(order.Materials) != 2 {
			t.Fatalf("materials = %d, want 2", len(order.Materials))
		}
		for _, m := range order.Materials {
			if m.Decision != store.DecisionPending {
				t.Errorf("material %s decision = %q, want pending", m.MaterialRequestID, m.Decision)
			}
		}
	})

	t.Run("insufficient capital blocks the order", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 1000)

		_, _, err := env.svc.SendOrder(ctx, SendOrderCommand{
			ProjectID:   projectID,
			Supplier:    "Steelworks Ltd",
			Quantity:    100,
			UnitCost:    25,
			RequestedBy: "alice",
		})
		if !errors.Is(err, ErrInsufficientCapital) {
			t.Fatalf("err = %v, want ErrInsufficientCapital", err)
		}
	})

	t.Run("capital not set passes with a warning", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 0)

		order, warnings, err := env.svc.SendOrder(ctx, SendOrderCommand{
			ProjectID:   projectID,
			Supplier:    "Steelworks Ltd",
			Quantity:    100,
			UnitCost:    25,
			RequestedBy: "alice",
		})
		if err != nil {
			t.Fatalf("SendOrder: %v", err)
		}
		if order.Status != store.OrderStatusSent {
			t.Errorf("status = %q, want %q", order.Status, store.OrderStatusSent)
		}
		if len(warnings) != 1 {
			t.Fatalf("warnings = %v, want one capital-not-set note", warnings)
		}
	})

	t.Run("rejects invalid drafts", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)

		cases := map[string]SendOrderCommand{
			"missing supplier": {ProjectID: projectID, Quantity: 1, UnitCost: 10},
			"zero quantity":    {ProjectID: projectID, Supplier: "x", Quantity: 0, UnitCost: 10},
			"negative cost":    {ProjectID: projectID, Supplier: "x", Quantity: 1, UnitCost: -1},
			"duplicate bulk line": {ProjectID: projectID, Supplier: "x", Materials: []MaterialRequest{
				{MaterialRequestID: "mr-1", Quantity: 1, UnitCost: 1},
				{MaterialRequestID: "mr-1", Quantity: 2, UnitCost: 2},
			}},
		}
		for name, cmd := range cases {
			t.Run(name, func(t *testing.T) {
				if _, _, err := env.svc.SendOrder(ctx, cmd); !errors.Is(err, ErrInvalidOrder) {
					t.Errorf("err = %v, want ErrInvalidOrder", err)
				}
			})
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		env := newTestEnv(t)
		_, _, err := env.svc.SendOrder(ctx, SendOrderCommand{
			ProjectID: uuid.New(),
			Supplier:  "Steelworks Ltd",
			Quantity:  1,
			UnitCost:  1,
		})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err = %v, want store.ErrNotFound", err)
		}
	})
}

func TestProcessSupplierResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("accept commits the order total", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		updated, warnings, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID,
			Token:   order.ResponseToken,
			Action:  ActionAccept,
		})
		if err != nil {
			t.Fatalf("ProcessSupplierResponse: %v", err)
		}
		if updated.Status != store.OrderStatusAccepted {
			t.Errorf("status = %q, want accepted", updated.Status)
		}
		if updated.FinancialStatus != store.FinancialStatusCommitted {
			t.Errorf("financial status = %q, want committed", updated.FinancialStatus)
		}
		if updated.CommittedTotal != 2500 {
			t.Errorf("committed total = %v, want 2500", updated.CommittedTotal)
		}
		if updated.ResponseTokenUsedAt == nil {
			t.Errorf("token usedAt is nil after a response")
		}
		if len(warnings) != 0 {
			t.Errorf("warnings = %v, want none with capital set", warnings)
		}

		fin, err := env.st.Finances.Get(ctx, projectID)
		if err != nil {
			t.Fatalf("Get finances: %v", err)
		}
		if fin.CommittedCost != 2500 {
			t.Errorf("ledger committed = %v, want 2500", fin.CommittedCost)
		}
		if len(env.enq.calls) == 0 {
			t.Errorf("no recalculation was enqueued")
		}
	})

	t.Run("accept prices an unpriced order", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)

		order, _, err := env.svc.SendOrder(ctx, SendOrderCommand{
			ProjectID:   projectID,
			Supplier:    "Steelworks Ltd",
			Description: "rebar, priced on acceptance",
			Quantity:    10,
			UnitCost:    0,
			RequestedBy: "alice",
		})
		if err != nil {
			t.Fatalf("SendOrder: %v", err)
		}

		updated, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID:  order.ID,
			Token:    order.ResponseToken,
			Action:   ActionAccept,
			UnitCost: ptr(25),
		})
		if err != nil {
			t.Fatalf("ProcessSupplierResponse: %v", err)
		}
		if updated.Status != store.OrderStatusAccepted {
			t.Errorf("status = %q, want accepted", updated.Status)
		}
		if updated.TotalCost != 250 {
			t.Errorf("total = %v, want 250", updated.TotalCost)
		}
		if updated.CommittedTotal != 250 {
			t.Errorf("committed total = %v, want 250", updated.CommittedTotal)
		}

		fin, err := env.st.Finances.Get(ctx, projectID)
		if err != nil {
			t.Fatalf("Get finances: %v", err)
		}
		if fin.CommittedCost != 250 {
			t.Errorf("ledger committed = %v, want 250", fin.CommittedCost)
		}
	})

	t.Run("accept requires a resolvable positive unit cost", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)

		order, _, err := env.svc.SendOrder(ctx, SendOrderCommand{
			ProjectID:   projectID,
			Supplier:    "Steelworks Ltd",
			Quantity:    10,
			UnitCost:    0,
			RequestedBy: "alice",
		})
		if err != nil {
			t.Fatalf("SendOrder: %v", err)
		}

		_, _, err = env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionAccept,
		})
		if !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("err = %v, want ErrInvalidResponse", err)
		}

		current, err := env.st.Orders.GetByID(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.Status != store.OrderStatusSent {
			t.Errorf("status = %q, a failed acceptance must not change state", current.Status)
		}
		if current.ResponseTokenUsedAt != nil {
			t.Errorf("token was spent by a failed acceptance")
		}
	})

	t.Run("accept cannot change quantity", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		_, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionAccept, Quantity: ptr(50),
		})
		if !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("err = %v, want ErrInvalidResponse", err)
		}
	})

	t.Run("accept re-checks capital at response time", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 0)

		order, _, err := env.svc.SendOrder(ctx, SendOrderCommand{
			ProjectID:   projectID,
			Supplier:    "Steelworks Ltd",
			Quantity:    6,
			UnitCost:    25,
			RequestedBy: "alice",
		})
		if err != nil {
			t.Fatalf("SendOrder: %v", err)
		}

		err = env.st.Finances.Overwrite(ctx, &store.ProjectFinances{
			ProjectID:     projectID,
			TotalInvested: 100,
		})
		if err != nil {
			t.Fatalf("seed finances: %v", err)
		}

		_, _, err = env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionAccept,
		})
		if !errors.Is(err, ErrInsufficientCapital) {
			t.Fatalf("err = %v, want ErrInsufficientCapital", err)
		}
		if got, want := err.Error(), "short 50.00"; !strings.Contains(got, want) {
			t.Errorf("err = %q, want it to name the %q", got, want)
		}

		current, err := env.st.Orders.GetByID(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.Status != store.OrderStatusSent {
			t.Errorf("status = %q, a blocked acceptance must not change state", current.Status)
		}
		if current.ResponseTokenUsedAt != nil {
			t.Errorf("token was spent by a blocked acceptance")
		}
		fin, err := env.st.Finances.Get(ctx, projectID)
		if err != nil {
			t.Fatalf("Get finances: %v", err)
		}
		if fin.CommittedCost != 0 {
			t.Errorf("ledger committed = %v, want 0", fin.CommittedCost)
		}
	})

	t.Run("accept with capital not set carries a warning", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 0)
		order := env.sendSingleOrder(t, projectID)

		updated, warnings, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionAccept,
		})
		if err != nil {
			t.Fatalf("ProcessSupplierResponse: %v", err)
		}
		if updated.Status != store.OrderStatusAccepted {
			t.Errorf("status = %q, want accepted", updated.Status)
		}
		if len(warnings) != 1 {
			t.Fatalf("warnings = %v, want one capital-not-set note", warnings)
		}
	})

	t.Run("token is single use", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		if _, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionAccept,
		}); err != nil {
			t.Fatalf("first response: %v", err)
		}

		_, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionReject, RejectionReason: ReasonOther,
		})
		if !errors.Is(err, ErrTokenAlreadyUsed) {
			t.Fatalf("second response err = %v, want ErrTokenAlreadyUsed", err)
		}

		current, err := env.st.Orders.GetByID(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.Status != store.OrderStatusAccepted {
			t.Errorf("status = %q, the losing response must not change state", current.Status)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		_, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: "not-the-token", Action: ActionAccept,
		})
		if !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("err = %v, want ErrTokenInvalid", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		env.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionAccept,
		})
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("err = %v, want ErrTokenExpired", err)
		}
	})

	t.Run("modification recomputes the total and stays uncommitted", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		updated, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID:  order.ID,
			Token:    order.ResponseToken,
			Action:   ActionModify,
			UnitCost: ptr(27.5),
			Notes:    "steel price moved since the quote",
		})
		if err != nil {
			t.Fatalf("ProcessSupplierResponse: %v", err)
		}
		if updated.Status != store.OrderStatusModified {
			t.Errorf("status = %q, want modified", updated.Status)
		}
		if updated.TotalCost != 2750 {
			t.Errorf("total = %v, want 2750", updated.TotalCost)
		}
		if updated.CommittedTotal != 0 {
			t.Errorf("committed total = %v, want 0 until the buyer approves", updated.CommittedTotal)
		}
		if updated.FinancialStatus != store.FinancialStatusUncommitted {
			t.Errorf("financial status = %q, want uncommitted", updated.FinancialStatus)
		}
	})

	t.Run("modification must change a term", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		_, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionModify,
			Notes: "same terms, restated",
		})
		if !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("err = %v, want ErrInvalidResponse", err)
		}
	})

	t.Run("rejection requires supplier notes", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		_, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionReject,
			RejectionReason: ReasonOutOfStock,
		})
		if !errors.Is(err, ErrNotesRequired) {
			t.Fatalf("err = %v, want ErrNotesRequired", err)
		}

		current, err := env.st.Orders.GetByID(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.Status != store.OrderStatusSent {
			t.Errorf("status = %q, a failed rejection must not change state", current.Status)
		}
		if current.ResponseTokenUsedAt != nil {
			t.Errorf("token was spent by a failed rejection")
		}
	})

	t.Run("rejection requires a reason and classifies retryability", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)

		order := env.sendSingleOrder(t, projectID)
		if _, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionReject,
			Notes: "cannot fulfil this order",
		}); !errors.Is(err, ErrReasonRequired) {
			t.Fatalf("err = %v, want ErrReasonRequired", err)
		}

		updated, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID:         order.ID,
			Token:           order.ResponseToken,
			Action:          ActionReject,
			Notes:           "out of stock until next quarter",
			RejectionReason: ReasonOutOfStock,
		})
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if updated.Status != store.OrderStatusRejected {
			t.Errorf("status = %q, want rejected", updated.Status)
		}
		if updated.Retryable == nil || !*updated.Retryable {
			t.Errorf("retryable = %v, want true for out_of_stock", updated.Retryable)
		}

		second := env.sendSingleOrder(t, projectID)
		updated, _, err = env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID:         second.ID,
			Token:           second.ResponseToken,
			Action:          ActionReject,
			Notes:           "this line was discontinued",
			RejectionReason: ReasonDiscontinued,
		})
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if updated.Retryable == nil || *updated.Retryable {
			t.Errorf("retryable = %v, want false for discontinued", updated.Retryable)
		}
	})

	t.Run("bulk orders refuse the single-line endpoint", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)

		order, _, err := env.svc.SendOrder(ctx, SendOrderCommand{
			ProjectID: projectID,
			Supplier:  "BuildMart",
			Materials: []MaterialRequest{{MaterialRequestID: "mr-1", Quantity: 1, UnitCost: 10}},
		})
		if err != nil {
			t.Fatalf("SendOrder: %v", err)
		}

		_, _, err = env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: ActionAccept,
		})
		if !errors.Is(err, ErrLineResponsesRequired) {
			t.Fatalf("err = %v, want ErrLineResponsesRequired", err)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		_, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID: order.ID, Token: order.ResponseToken, Action: "escalate",
		})
		if !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("err = %v, want ErrInvalidResponse", err)
		}
	})
}

func TestApproveModification(t *testing.T) {
	ctx := context.Background()

	t.Run("approval commits the modified total", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		if _, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID:  order.ID,
			Token:    order.ResponseToken,
			Action:   ActionModify,
			UnitCost: ptr(30),
			Notes:    "new price list",
		}); err != nil {
			t.Fatalf("modify: %v", err)
		}

		updated, _, err := env.svc.ApproveModification(ctx, order.ID, "alice")
		if err != nil {
			t.Fatalf("ApproveModification: %v", err)
		}
		if updated.Status != store.OrderStatusAccepted {
			t.Errorf("status = %q, want accepted", updated.Status)
		}
		if updated.CommittedTotal != 3000 {
			t.Errorf("committed total = %v, want 3000", updated.CommittedTotal)
		}

		fin, err := env.st.Finances.Get(ctx, projectID)
		if err != nil {
			t.Fatalf("Get finances: %v", err)
		}
		if fin.CommittedCost != 3000 {
			t.Errorf("ledger committed = %v, want 3000", fin.CommittedCost)
		}
	})

	t.Run("approval blocks on a capital shortfall", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 0)
		order := env.sendSingleOrder(t, projectID)

		if _, _, err := env.svc.ProcessSupplierResponse(ctx, SupplierResponse{
			OrderID:  order.ID,
			Token:    order.ResponseToken,
			Action:   ActionModify,
			UnitCost: ptr(30),
		}); err != nil {
			t.Fatalf("modify: %v", err)
		}

		err := env.st.Finances.Overwrite(ctx, &store.ProjectFinances{
			ProjectID:     projectID,
			TotalInvested: 1000,
		})
		if err != nil {
			t.Fatalf("seed finances: %v", err)
		}

		_, _, err = env.svc.ApproveModification(ctx, order.ID, "alice")
		if !errors.Is(err, ErrInsufficientCapital) {
			t.Fatalf("err = %v, want ErrInsufficientCapital", err)
		}

		current, err := env.st.Orders.GetByID(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.Status != store.OrderStatusModified {
			t.Errorf("status = %q, a blocked approval must not change state", current.Status)
		}
		if current.FinancialStatus != store.FinancialStatusUncommitted {
			t.Errorf("financial status = %q, want uncommitted", current.FinancialStatus)
		}
	})

	t.Run("only modified orders can be approved", func(t *testing.T) {
		env := newTestEnv(t)
		projectID := env.createProject(t, 100000)
		order := env.sendSingleOrder(t, projectID)

		if _, _, err := env.svc.ApproveModification(ctx, order.ID, "alice"); !errors.Is(err, ErrModificationNotPending) {
			t.Fatalf("err = %v, want ErrModificationNotPending", err)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		env := newTestEnv(t)
		if _, _, err := env.svc.ApproveModification(ctx, uuid.New(), "alice"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err = %v, want store.ErrNotFound", err)
		}
	})
}
