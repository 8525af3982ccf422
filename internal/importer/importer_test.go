package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store/storetest"
)

type captureEnqueuer struct {
	projects []uuid.UUID
}

func (c *captureEnqueuer) Enqueue(projectID uuid.UUID) bool {
	c.projects = append(c.projects, projectID)
	return true
}

func newTestService(t *testing.T) (*Service, *storetest.Memory, *captureEnqueuer, uuid.UUID) {
	t.Helper()
	mem := storetest.New()
	st := mem.Storage()
	recalc := &captureEnqueuer{}
	svc := NewService(st, logger.New(logger.LevelError), recalc)

	projectID := uuid.New()
	project := &store.Project{ID: projectID, Name: "Riverside Towers", CreatedBy: "tester"}
	if err := st.Projects.Insert(context.Background(), project); err != nil {
		t.Fatalf("failed to insert project: %v", err)
	}
	return svc, mem, recalc, projectID
}

// encodeWindows1252 renders the fixture the way accounting exports arrive.
func encodeWindows1252(t *testing.T, s string) string {
	t.Helper()
	encoded, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return encoded
}

func TestImportExpenses(t *testing.T) {
	svc, mem, recalc, projectID := newTestService(t)

	csv := "date;category;description;amount\n" +
		"05/03/2026;materials;Ciment and rebar;R$ 1.234,56\n" +
		"06/03/2026;labour;Fundação crew;2500,00\n" +
		"07/03/2026;design;Survey;975.25\n"

	result, err := svc.ImportExpenses(context.Background(), projectID, "tester", strings.NewReader(encodeWindows1252(t, csv)))
	if err != nil {
		t.Fatalf("ImportExpenses failed: %v", err)
	}
	if result.Imported != 3 {
		t.Fatalf("expected 3 imported rows, got %d (errors: %v)", result.Imported, result.Errors)
	}
	if result.Skipped != 0 {
		t.Errorf("expected no skipped rows, got %d", result.Skipped)
	}

	expenses, err := mem.Storage().Expenses.ListByProject(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to list expenses: %v", err)
	}
	if len(expenses) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(expenses))
	}

	byCategory := map[string]store.Expense{}
	for _, e := range expenses {
		byCategory[e.Category] = e
	}
	materials, ok := byCategory["materials"]
	if !ok {
		t.Fatalf("expected a materials expense, got %v", byCategory)
	}
	if materials.Amount != 1234.56 {
		t.Errorf("expected the comma amount to parse to 1234.56, got %v", materials.Amount)
	}
	if got := materials.IncurredOn.Format("02/01/2006"); got != "05/03/2026" {
		t.Errorf("expected incurred date 05/03/2026, got %s", got)
	}
	labour, ok := byCategory["labour"]
	if !ok {
		t.Fatalf("expected a labour expense, got %v", byCategory)
	}
	if labour.Description != "Fundação crew" {
		t.Errorf("expected the accented description to survive decoding, got %q", labour.Description)
	}
	if labour.Amount != 2500 {
		t.Errorf("expected 2500, got %v", labour.Amount)
	}
	if design := byCategory["design"]; design.Amount != 975.25 {
		t.Errorf("expected the dot amount to parse to 975.25, got %v", design.Amount)
	}

	if len(recalc.projects) != 1 || recalc.projects[0] != projectID {
		t.Errorf("expected exactly one recalculation for the project, got %v", recalc.projects)
	}
}

func TestImportExpensesSkipsBadRows(t *testing.T) {
	svc, mem, recalc, projectID := newTestService(t)

	csv := "date;category;description;amount\n" +
		"05/03/2026;materials;good row;100,00\n" +
		"2026-03-06;labour;iso date;200,00\n" +
		"07/03/2026;materials;bad amount;abc\n" +
		"08/03/2026;;no category;300,00\n" +
		"09/03/2026;labour;negative;-50,00\n"

	result, err := svc.ImportExpenses(context.Background(), projectID, "tester", strings.NewReader(encodeWindows1252(t, csv)))
	if err != nil {
		t.Fatalf("ImportExpenses failed: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("expected 1 imported row, got %d (errors: %v)", result.Imported, result.Errors)
	}
	if result.Skipped != 4 {
		t.Errorf("expected 4 skipped rows, got %d", result.Skipped)
	}
	if len(result.Errors) != 4 {
		t.Errorf("expected 4 row errors, got %v", result.Errors)
	}

	expenses, err := mem.Storage().Expenses.ListByProject(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to list expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Description != "good row" {
		t.Fatalf("expected only the good row to land, got %v", expenses)
	}
	if len(recalc.projects) != 1 {
		t.Errorf("expected one recalculation, got %v", recalc.projects)
	}
}

func TestImportExpensesRejectsBadFiles(t *testing.T) {
	svc, _, recalc, projectID := newTestService(t)

	t.Run("missing column", func(t *testing.T) {
		csv := "date;description;amount\n05/03/2026;no category column;100,00\n"
		_, err := svc.ImportExpenses(context.Background(), projectID, "tester", strings.NewReader(csv))
		if err == nil || !strings.Contains(err.Error(), "category") {
			t.Fatalf("expected a missing-column error, got %v", err)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		csv := "date;category;description;amount\n05/03/2026;materials;x;100,00\n"
		_, err := svc.ImportExpenses(context.Background(), uuid.New(), "tester", strings.NewReader(csv))
		if err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	if len(recalc.projects) != 0 {
		t.Errorf("expected no recalculations for rejected files, got %v", recalc.projects)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "comma decimals", raw: "1.234,56", want: 1234.56},
		{name: "currency prefix", raw: "R$ 2.500,00", want: 2500},
		{name: "plain dot", raw: "975.25", want: 975.25},
		{name: "integer", raw: "300", want: 300},
		{name: "comma only", raw: "42,5", want: 42.5},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "garbage", raw: "abc", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error for %q, got %v", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) failed: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}
