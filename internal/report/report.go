// Package report assembles budget execution views: what each direct cost
// category was allocated, what was actually spent, and what stands
// committed on open orders. A report renders as a gota dataframe, CSV,
// or an XLSX workbook.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/Victorkib/kisheka-construction-sub007/internal/budget"
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type Service struct {
	storage *store.Storage
	logger  *logger.Logger
	policy  budget.Policy
}

func NewService(storage *store.Storage, log *logger.Logger, policy budget.Policy) *Service {
	return &Service{storage: storage, logger: log, policy: policy}
}

// Row is one category line of a budget execution report.
type Row struct {
	Category  string  `json:"category"`
	Allocated float64 `json:"allocated"`
	Actual    float64 `json:"actual"`
	Variance  float64 `json:"variance"`
	UsagePct  float64 `json:"usage_pct"`
}

// Execution is the budget execution report for one project. Expense
// categories outside the four budgeted ones appear as extra rows with a
// zero allocation, so off-budget spend is visible rather than hidden.
type Execution struct {
	ProjectID      uuid.UUID `json:"project_id"`
	ProjectName    string    `json:"project_name"`
	GeneratedAt    time.Time `json:"generated_at"`
	Rows           []Row     `json:"rows"`
	AllocatedTotal float64   `json:"allocated_total"`
	ActualTotal    float64   `json:"actual_total"`
	CommittedTotal float64   `json:"committed_total"`
	Warnings       []string  `json:"warnings,omitempty"`
}

func (s *Service) BudgetExecution(ctx context.Context, projectID uuid.UUID) (*Execution, error) {
	project, err := s.storage.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	enhanced, shape, warnings, err := budget.Normalize(project.Budget, s.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to read project budget: %w", err)
	}
	if shape == budget.ShapeLegacy {
		warnings = append(warnings, "report built from an upgraded legacy budget")
	}

	byCategory, err := s.storage.Expenses.SumByCategory(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}
	committed, err := s.storage.Orders.SumCommittedByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum committed orders: %w", err)
	}

	actuals := make(map[string]float64, len(byCategory))
	for _, ct := range byCategory {
		actuals[ct.Category] = ct.Total
	}

	d := enhanced.DirectConstructionCosts
	rows := []Row{
		newRow(budget.CategoryMaterials, d.Materials, actuals),
		newRow(budget.CategoryLabour, d.Labour, actuals),
		newRow(budget.CategoryEquipment, d.Equipment, actuals),
		newRow(budget.CategorySubcontractors, d.Subcontractors, actuals),
	}

	budgeted := map[string]bool{
		budget.CategoryMaterials:      true,
		budget.CategoryLabour:         true,
		budget.CategoryEquipment:      true,
		budget.CategorySubcontractors: true,
	}
	var extras []string
	for category := range actuals {
		if !budgeted[category] {
			extras = append(extras, category)
		}
	}
	sort.Strings(extras)
	for _, category := range extras {
		rows = append(rows, newRow(category, 0, actuals))
	}

	exec := &Execution{
		ProjectID:      projectID,
		ProjectName:    project.Name,
		GeneratedAt:    time.Now(),
		Rows:           rows,
		AllocatedTotal: d.Total,
		CommittedTotal: committed,
		Warnings:       warnings,
	}
	actualTotals := make([]float64, len(rows))
	for i, r := range rows {
		actualTotals[i] = r.Actual
	}
	exec.ActualTotal = money.Sum(actualTotals...)

	s.logger.Debug("report", "project %s: execution report with %d rows", projectID, len(rows))
	return exec, nil
}

func newRow(category string, allocated float64, actuals map[string]float64) Row {
	actual := actuals[category]
	row := Row{
		Category:  category,
		Allocated: allocated,
		Actual:    actual,
		Variance:  money.Sum(allocated, -actual),
	}
	if allocated > 0 {
		row.UsagePct = money.Round2(actual / allocated * 100)
	}
	return row
}

// DataFrame renders the report rows as a dataframe.
func (e *Execution) DataFrame() dataframe.DataFrame {
	n := len(e.Rows)
	categories := make([]string, n)
	allocated := make([]float64, n)
	actual := make([]float64, n)
	variance := make([]float64, n)
	usage := make([]float64, n)
	for i, row := range e.Rows {
		categories[i] = row.Category
		allocated[i] = row.Allocated
		actual[i] = row.Actual
		variance[i] = row.Variance
		usage[i] = row.UsagePct
	}

	return dataframe.New(
		series.New(categories, series.String, "category"),
		series.New(allocated, series.Float, "allocated"),
		series.New(actual, series.Float, "actual"),
		series.New(variance, series.Float, "variance"),
		series.New(usage, series.Float, "usage_pct"),
	)
}

// WriteCSV writes the report rows as CSV.
func (e *Execution) WriteCSV(w io.Writer) error {
	df := e.DataFrame()
	if df.Error() != nil {
		return fmt.Errorf("failed to build report dataframe: %w", df.Error())
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write report csv: %w", err)
	}
	return nil
}

const xlsxSheet = "Budget Execution"

// WriteXLSX renders the report as a one-sheet workbook with a totals row
// and the committed figure underneath.
func (e *Execution) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("failed to name report sheet: %w", err)
	}

	headers := []string{"Category", "Allocated", "Actual", "Variance", "Usage %"}
	for i, h := range headers {
		if err := setCell(f, i+1, 1, h); err != nil {
			return err
		}
	}

	for i, row := range e.Rows {
		values := []interface{}{row.Category, row.Allocated, row.Actual, row.Variance, row.UsagePct}
		for j, v := range values {
			if err := setCell(f, j+1, i+2, v); err != nil {
				return err
			}
		}
	}

	totalsRow := len(e.Rows) + 2
	totals := []interface{}{"TOTAL", e.AllocatedTotal, e.ActualTotal, money.Sum(e.AllocatedTotal, -e.ActualTotal), ""}
	for j, v := range totals {
		if err := setCell(f, j+1, totalsRow, v); err != nil {
			return err
		}
	}
	if err := setCell(f, 1, totalsRow+1, "Committed on open orders"); err != nil {
		return err
	}
	if err := setCell(f, 2, totalsRow+1, e.CommittedTotal); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write report workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to place report cell: %w", err)
	}
	if err := f.SetCellValue(xlsxSheet, cell, value); err != nil {
		return fmt.Errorf("failed to set report cell %s: %w", cell, err)
	}
	return nil
}
