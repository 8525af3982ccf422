// Package storetest provides an in-memory Storage implementation for
// engine tests. It mirrors the SQL stores' semantics, including the
// guarded updates the settlement state machine depends on, so tests
// exercise the same contracts without a database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

// Memory holds all records behind one mutex. Zero value is not usable;
// call New.
type Memory struct {
	mu sync.Mutex

	projects          map[uuid.UUID]store.Project
	phases            map[uuid.UUID]store.Phase
	finances          map[uuid.UUID]store.ProjectFinances
	orders            map[uuid.UUID]store.PurchaseOrder
	materials         map[uuid.UUID][]store.OrderMaterial
	materialResponses map[uuid.UUID][]store.OrderMaterialResponse
	transfers         map[uuid.UUID]store.BudgetTransfer
	expenses          []store.Expense
	investments       []store.Investment
	audits            []store.AuditEntry

	// AllocationUpdateErr injects failures into UpdateAllocatedBudget,
	// keyed by phase id. Used to test per-phase failure isolation.
	AllocationUpdateErr map[uuid.UUID]error
}

func New() *Memory {
	return &Memory{
		projects:            make(map[uuid.UUID]store.Project),
		phases:              make(map[uuid.UUID]store.Phase),
		finances:            make(map[uuid.UUID]store.ProjectFinances),
		orders:              make(map[uuid.UUID]store.PurchaseOrder),
		materials:           make(map[uuid.UUID][]store.OrderMaterial),
		materialResponses:   make(map[uuid.UUID][]store.OrderMaterialResponse),
		transfers:           make(map[uuid.UUID]store.BudgetTransfer),
		AllocationUpdateErr: make(map[uuid.UUID]error),
	}
}

// Storage returns a store.Storage backed by this Memory.
func (m *Memory) Storage() *store.Storage {
	return &store.Storage{
		Projects:    &projectRepo{m},
		Phases:      &phaseRepo{m},
		Finances:    &financeRepo{m},
		Orders:      &orderRepo{m},
		Expenses:    &expenseRepo{m},
		Investments: &investmentRepo{m},
		Transfers:   &transferRepo{m},
		Audit:       &auditRepo{m},
	}
}

// AuditCount reports how many audit entries have been persisted.
func (m *Memory) AuditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits)
}

// MaterialResponses returns the recorded supplier responses for an order.
func (m *Memory) MaterialResponses(orderID uuid.UUID) []store.OrderMaterialResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.OrderMaterialResponse, len(m.materialResponses[orderID]))
	copy(out, m.materialResponses[orderID])
	return out
}

type projectRepo struct{ m *Memory }

func (r *projectRepo) Insert(ctx context.Context, project *store.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	r.m.projects[project.ID] = *project
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	p, ok := r.m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context) ([]store.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := make([]store.Project, 0, len(r.m.projects))
	for _, p := range r.m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *projectRepo) UpdateBudget(ctx context.Context, id uuid.UUID, budget []byte) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	p, ok := r.m.projects[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Budget = append([]byte(nil), budget...)
	p.UpdatedAt = time.Now()
	r.m.projects[id] = p
	return nil
}

func (r *projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.projects[id]; !ok {
		return store.ErrNotFound
	}

	for orderID, o := range r.m.orders {
		if o.ProjectID == id {
			delete(r.m.orders, orderID)
			delete(r.m.materials, orderID)
			delete(r.m.materialResponses, orderID)
		}
	}
	for phaseID, p := range r.m.phases {
		if p.ProjectID == id {
			delete(r.m.phases, phaseID)
		}
	}
	for transferID, t := range r.m.transfers {
		if t.ProjectID == id {
			delete(r.m.transfers, transferID)
		}
	}
	r.m.expenses = filterExpenses(r.m.expenses, id)
	r.m.investments = filterInvestments(r.m.investments, id)
	delete(r.m.finances, id)
	delete(r.m.projects, id)
	return nil
}

func filterExpenses(in []store.Expense, projectID uuid.UUID) []store.Expense {
	out := in[:0]
	for _, e := range in {
		if e.ProjectID != projectID {
			out = append(out, e)
		}
	}
	return out
}

func filterInvestments(in []store.Investment, projectID uuid.UUID) []store.Investment {
	out := in[:0]
	for _, i := range in {
		if i.ProjectID != projectID {
			out = append(out, i)
		}
	}
	return out
}

type phaseRepo struct{ m *Memory }

func (r *phaseRepo) Insert(ctx context.Context, phase *store.Phase) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := time.Now()
	phase.CreatedAt = now
	phase.UpdatedAt = now
	r.m.phases[phase.ID] = *phase
	return nil
}

func (r *phaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.Phase, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	p, ok := r.m.phases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r *phaseRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]store.Phase, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []store.Phase
	for _, p := range r.m.phases {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *phaseRepo) UpdateAllocatedBudget(ctx context.Context, phaseID uuid.UUID, amount float64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if err := r.m.AllocationUpdateErr[phaseID]; err != nil {
		return err
	}

	p, ok := r.m.phases[phaseID]
	if !ok {
		return store.ErrNotFound
	}
	p.AllocatedBudget = amount
	p.UpdatedAt = time.Now()
	r.m.phases[phaseID] = p
	return nil
}

func (r *phaseRepo) IncrementCommitted(ctx context.Context, phaseID uuid.UUID, delta float64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	p, ok := r.m.phases[phaseID]
	if !ok {
		return store.ErrNotFound
	}
	p.CommittedCost += delta
	p.UpdatedAt = time.Now()
	r.m.phases[phaseID] = p
	return nil
}

func (r *phaseRepo) RecomputeAggregates(ctx context.Context, projectID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for id, p := range r.m.phases {
		if p.ProjectID != projectID {
			continue
		}

		var committed float64
		for _, o := range r.m.orders {
			if o.PhaseID != nil && *o.PhaseID == id && o.FinancialStatus == store.FinancialStatusCommitted {
				committed += o.CommittedTotal
			}
		}

		var actual float64
		for _, e := range r.m.expenses {
			if e.PhaseID != nil && *e.PhaseID == id {
				actual += e.Amount
			}
		}

		p.CommittedCost = committed
		p.ActualSpend = actual
		p.UpdatedAt = time.Now()
		r.m.phases[id] = p
	}
	return nil
}

type financeRepo struct{ m *Memory }

func (r *financeRepo) Ensure(ctx context.Context, projectID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.finances[projectID]; !ok {
		r.m.finances[projectID] = store.ProjectFinances{ProjectID: projectID, UpdatedAt: time.Now()}
	}
	return nil
}

func (r *financeRepo) Get(ctx context.Context, projectID uuid.UUID) (*store.ProjectFinances, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	f, ok := r.m.finances[projectID]
	if !ok {
		return nil, store.ErrNotFound
	}
	f.CapitalBalance = f.TotalInvested - f.TotalUsed
	return &f, nil
}

func (r *financeRepo) IncrementCommitted(ctx context.Context, projectID uuid.UUID, delta float64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	f, ok := r.m.finances[projectID]
	if !ok {
		return store.ErrNotFound
	}
	f.CommittedCost += delta
	f.UpdatedAt = time.Now()
	r.m.finances[projectID] = f
	return nil
}

func (r *financeRepo) Overwrite(ctx context.Context, f *store.ProjectFinances) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored := *f
	stored.UpdatedAt = time.Now()
	r.m.finances[f.ProjectID] = stored
	return nil
}

func (r *financeRepo) RecomputeFromSources(ctx context.Context, projectID uuid.UUID) (*store.ProjectFinances, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var invested, used, committed float64
	for _, i := range r.m.investments {
		if i.ProjectID == projectID {
			invested += i.Amount
		}
	}
	for _, e := range r.m.expenses {
		if e.ProjectID == projectID {
			used += e.Amount
		}
	}
	for _, o := range r.m.orders {
		if o.ProjectID == projectID && o.FinancialStatus == store.FinancialStatusCommitted {
			committed += o.CommittedTotal
		}
	}

	return &store.ProjectFinances{
		ProjectID:      projectID,
		TotalInvested:  invested,
		TotalUsed:      used,
		CommittedCost:  committed,
		CapitalBalance: invested - used,
	}, nil
}

type orderRepo struct{ m *Memory }

func (r *orderRepo) Insert(ctx context.Context, order *store.PurchaseOrder) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	stored.Materials = nil
	r.m.orders[order.ID] = stored

	for i := range order.Materials {
		mat := &order.Materials[i]
		if mat.ID == uuid.Nil {
			mat.ID = uuid.New()
		}
		mat.OrderID = order.ID
		if mat.Decision == "" {
			mat.Decision = store.DecisionPending
		}
		r.m.materials[order.ID] = append(r.m.materials[order.ID], *mat)
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.PurchaseOrder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	o, ok := r.m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if o.IsBulkOrder {
		mats := make([]store.OrderMaterial, len(r.m.materials[id]))
		copy(mats, r.m.materials[id])
		sort.Slice(mats, func(i, j int) bool { return mats[i].MaterialRequestID < mats[j].MaterialRequestID })
		o.Materials = mats
	}
	return &o, nil
}

func (r *orderRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]store.PurchaseOrder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []store.PurchaseOrder
	for _, o := range r.m.orders {
		if o.ProjectID == projectID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func statusIn(status string, set []string) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func (r *orderRepo) ApplyResponse(ctx context.Context, p store.ApplyResponseParams) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	o, ok := r.m.orders[p.OrderID]
	if !ok {
		return false, nil
	}
	if o.ResponseTokenUsedAt != nil || !statusIn(o.Status, p.FromStatuses) {
		return false, nil
	}

	o.Status = p.NewStatus
	if p.UnitCost != nil {
		o.UnitCost = p.UnitCost
	}
	if p.Quantity != nil {
		o.Quantity = *p.Quantity
	}
	o.TotalCost = p.TotalCost
	o.CommittedTotal = p.CommittedTotal
	o.FinancialStatus = p.FinancialStatus
	o.SupplierNotes = p.SupplierNotes
	o.RejectionReason = p.RejectionReason
	o.Retryable = p.Retryable
	respondedAt := p.RespondedAt
	o.ResponseTokenUsedAt = &respondedAt
	o.RespondedAt = &respondedAt
	o.UpdatedAt = time.Now()
	r.m.orders[p.OrderID] = o
	return true, nil
}

func (r *orderRepo) ApplyBulkResponse(ctx context.Context, p store.ApplyBulkResponseParams) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	o, ok := r.m.orders[p.OrderID]
	if !ok {
		return false, nil
	}
	if o.ResponseTokenUsedAt != nil || !statusIn(o.Status, p.FromStatuses) {
		return false, nil
	}

	lines := r.m.materials[p.OrderID]
	byRequest := make(map[string]int, len(lines))
	for i, line := range lines {
		byRequest[line.MaterialRequestID] = i
	}

	updated := make([]store.OrderMaterial, len(lines))
	copy(updated, lines)
	for _, lu := range p.Lines {
		idx, ok := byRequest[lu.MaterialRequestID]
		if !ok {
			return false, store.ErrNotFound
		}
		line := updated[idx]
		line.Decision = lu.Decision
		if lu.UnitCost != nil {
			line.UnitCost = lu.UnitCost
		}
		if lu.Quantity != nil {
			line.Quantity = *lu.Quantity
		}
		line.TotalCost = lu.TotalCost
		line.FlaggedForReassignment = lu.FlaggedForReassignment
		updated[idx] = line
	}

	o.Status = p.NewStatus
	o.TotalCost = p.TotalCost
	o.CommittedTotal = p.CommittedTotal
	o.FinancialStatus = p.FinancialStatus
	o.SupplierNotes = p.SupplierNotes
	respondedAt := p.RespondedAt
	o.ResponseTokenUsedAt = &respondedAt
	o.RespondedAt = &respondedAt
	o.UpdatedAt = time.Now()

	r.m.orders[p.OrderID] = o
	r.m.materials[p.OrderID] = updated
	for _, resp := range p.Responses {
		if resp.ID == uuid.Nil {
			resp.ID = uuid.New()
		}
		resp.OrderID = p.OrderID
		resp.CreatedAt = time.Now()
		r.m.materialResponses[p.OrderID] = append(r.m.materialResponses[p.OrderID], resp)
	}
	return true, nil
}

func (r *orderRepo) ApproveModification(ctx context.Context, orderID uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	o, ok := r.m.orders[orderID]
	if !ok || o.Status != store.OrderStatusModified {
		return false, nil
	}

	o.Status = store.OrderStatusAccepted
	o.FinancialStatus = store.FinancialStatusCommitted
	o.CommittedTotal = o.TotalCost
	o.UpdatedAt = time.Now()
	r.m.orders[orderID] = o
	return true, nil
}

func (r *orderRepo) SumCommittedByProject(ctx context.Context, projectID uuid.UUID) (float64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var total float64
	for _, o := range r.m.orders {
		if o.ProjectID == projectID && o.FinancialStatus == store.FinancialStatusCommitted {
			total += o.CommittedTotal
		}
	}
	return total, nil
}

type expenseRepo struct{ m *Memory }

func (r *expenseRepo) Insert(ctx context.Context, expense *store.Expense) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	expense.CreatedAt = time.Now()
	r.m.expenses = append(r.m.expenses, *expense)
	return nil
}

func (r *expenseRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]store.Expense, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []store.Expense
	for _, e := range r.m.expenses {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IncurredOn.Before(out[j].IncurredOn) })
	return out, nil
}

func (r *expenseRepo) SumByProject(ctx context.Context, projectID uuid.UUID) (float64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var total float64
	for _, e := range r.m.expenses {
		if e.ProjectID == projectID {
			total += e.Amount
		}
	}
	return total, nil
}

func (r *expenseRepo) SumByCategory(ctx context.Context, projectID uuid.UUID) ([]store.CategoryTotal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	sums := make(map[string]float64)
	for _, e := range r.m.expenses {
		if e.ProjectID == projectID {
			sums[e.Category] += e.Amount
		}
	}

	out := make([]store.CategoryTotal, 0, len(sums))
	for category, total := range sums {
		out = append(out, store.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

func (r *expenseRepo) DailyTotals(ctx context.Context, projectID uuid.UUID) ([]store.DailyTotal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	sums := make(map[time.Time]float64)
	for _, e := range r.m.expenses {
		if e.ProjectID == projectID {
			day := e.IncurredOn.Truncate(24 * time.Hour)
			sums[day] += e.Amount
		}
	}

	out := make([]store.DailyTotal, 0, len(sums))
	for day, total := range sums {
		out = append(out, store.DailyTotal{Day: day, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

type investmentRepo struct{ m *Memory }

func (r *investmentRepo) Insert(ctx context.Context, investment *store.Investment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	investment.CreatedAt = time.Now()
	r.m.investments = append(r.m.investments, *investment)
	return nil
}

func (r *investmentRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]store.Investment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []store.Investment
	for _, i := range r.m.investments {
		if i.ProjectID == projectID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvestedOn.Before(out[j].InvestedOn) })
	return out, nil
}

func (r *investmentRepo) SumByProject(ctx context.Context, projectID uuid.UUID) (float64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var total float64
	for _, i := range r.m.investments {
		if i.ProjectID == projectID {
			total += i.Amount
		}
	}
	return total, nil
}

type transferRepo struct{ m *Memory }

func (r *transferRepo) Insert(ctx context.Context, transfer *store.BudgetTransfer) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	transfer.CreatedAt = time.Now()
	r.m.transfers[transfer.ID] = *transfer
	return nil
}

func (r *transferRepo) GetByID(ctx context.Context, id uuid.UUID) (*store.BudgetTransfer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.transfers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (r *transferRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]store.BudgetTransfer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []store.BudgetTransfer
	for _, t := range r.m.transfers {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *transferRepo) Approve(ctx context.Context, id uuid.UUID, decidedBy string, apply func(budget []byte) ([]byte, error)) (*store.BudgetTransfer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.transfers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Status != store.TransferStatusPending {
		return nil, store.ErrTransferNotPending
	}

	p, ok := r.m.projects[t.ProjectID]
	if !ok {
		return nil, store.ErrNotFound
	}

	newBudget, err := apply(p.Budget)
	if err != nil {
		return nil, err
	}

	p.Budget = newBudget
	p.UpdatedAt = time.Now()
	r.m.projects[t.ProjectID] = p

	now := time.Now()
	t.Status = store.TransferStatusApproved
	t.DecidedBy = &decidedBy
	t.DecidedAt = &now
	r.m.transfers[id] = t
	return &t, nil
}

func (r *transferRepo) Reject(ctx context.Context, id uuid.UUID, decidedBy, note string) (*store.BudgetTransfer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.transfers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Status != store.TransferStatusPending {
		return nil, store.ErrTransferNotPending
	}

	now := time.Now()
	t.Status = store.TransferStatusRejected
	t.DecidedBy = &decidedBy
	t.DecidedAt = &now
	t.Note = note
	r.m.transfers[id] = t
	return &t, nil
}

type auditRepo struct{ m *Memory }

func (r *auditRepo) Insert(ctx context.Context, entry *store.AuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	entry.CreatedAt = time.Now()
	r.m.audits = append(r.m.audits, *entry)
	return nil
}

func (r *auditRepo) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]store.AuditEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []store.AuditEntry
	for i := len(r.m.audits) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.m.audits[i]
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}
