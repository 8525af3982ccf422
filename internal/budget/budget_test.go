package budget

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
)

func validEnhanced() Enhanced {
	return Enhanced{
		Total: 100000,
		DirectConstructionCosts: DirectCosts{
			Total:          85000,
			Materials:      40000,
			Labour:         30000,
			Equipment:      10000,
			Subcontractors: 5000,
		},
		PreConstructionCosts: PreConstruction{Total: 5000, Design: 2000, Permits: 2000, SiteInvestigation: 1000},
		IndirectCosts:        Indirect{Total: 5000, SiteOverheads: 2000, Insurance: 2000, Bonds: 1000},
		ContingencyReserve:   5000,
	}
}

func TestDetectShape(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Shape
	}{
		{"enhanced", `{"total":100,"directConstructionCosts":{"total":80}}`, ShapeEnhanced},
		{"enhanced with old key", `{"total":100,"directCosts":{"total":80}}`, ShapeEnhanced},
		{"legacy", `{"total":100,"materials":40,"labour":30,"contingency":10}`, ShapeLegacy},
		{"empty object", `{}`, ShapeUnknown},
		{"not an object", `[1,2,3]`, ShapeUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectShape(json.RawMessage(tc.raw)); got != tc.want {
				t.Errorf("DetectShape(%s) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseLegacy(t *testing.T) {
	raw := json.RawMessage(`{"total":100000,"materials":40000,"labour":30000,"contingency":5000}`)

	b, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if b.Shape != ShapeLegacy {
		t.Fatalf("shape = %q, want %q", b.Shape, ShapeLegacy)
	}
	if b.Legacy == nil || b.Enhanced != nil {
		t.Fatalf("expected only the legacy arm to be set")
	}
	if b.Legacy.Materials != 40000 {
		t.Errorf("materials = %v, want 40000", b.Legacy.Materials)
	}
}

func TestParseUnknownShape(t *testing.T) {
	_, err := Parse(json.RawMessage(`{"something":"else"}`))
	if err != ErrUnknownShape {
		t.Fatalf("expected ErrUnknownShape, got %v", err)
	}
}

func TestParseOldDirectCostsKey(t *testing.T) {
	raw := json.RawMessage(`{"total":100000,"directCosts":{"total":85000,"materials":40000},"contingencyReserve":5000}`)

	b, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if b.Shape != ShapeEnhanced {
		t.Fatalf("shape = %q, want %q", b.Shape, ShapeEnhanced)
	}
	if b.Enhanced.DirectConstructionCosts.Total != 85000 {
		t.Errorf("direct costs total = %v, want 85000", b.Enhanced.DirectConstructionCosts.Total)
	}
	if b.Enhanced.DirectConstructionCosts.Materials != 40000 {
		t.Errorf("materials = %v, want 40000", b.Enhanced.DirectConstructionCosts.Materials)
	}
}

func TestTotal(t *testing.T) {
	e := validEnhanced()
	if got := Total(e); got != 100000 {
		t.Errorf("Total = %v, want the stated 100000", got)
	}

	e.Total = 0
	if got := Total(e); got != 100000 {
		t.Errorf("Total without a stated value = %v, want the component sum 100000", got)
	}
}

func TestConvertLegacyToEnhanced(t *testing.T) {
	l := Legacy{Total: 100000, Materials: 40000, Labour: 30000, Contingency: 5000}

	e, warnings := ConvertLegacyToEnhanced(l, DefaultPolicy())
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if e.Total != 100000 {
		t.Errorf("total = %v, want 100000", e.Total)
	}
	if e.PreConstructionCosts.Total != 5000 {
		t.Errorf("preConstruction = %v, want 5000", e.PreConstructionCosts.Total)
	}
	if e.IndirectCosts.Total != 5000 {
		t.Errorf("indirect = %v, want 5000", e.IndirectCosts.Total)
	}
	if e.DirectConstructionCosts.Total != 85000 {
		t.Errorf("dcc = %v, want 85000", e.DirectConstructionCosts.Total)
	}
	if e.DirectConstructionCosts.Materials != 40000 || e.DirectConstructionCosts.Labour != 30000 {
		t.Errorf("materials/labour not carried over: %+v", e.DirectConstructionCosts)
	}
	if e.ContingencyReserve != 5000 {
		t.Errorf("contingency = %v, want 5000", e.ContingencyReserve)
	}

	if v := Validate(e, money.DefaultTolerance); !v.Valid {
		t.Errorf("converted budget should validate, got errors: %v", v.Errors)
	}
}

func TestConvertPolicyOverride(t *testing.T) {
	l := Legacy{Total: 100000, Contingency: 0}

	e, _ := ConvertLegacyToEnhanced(l, Policy{PreConstructionPct: 0.10, IndirectPct: 0.02})
	if e.PreConstructionCosts.Total != 10000 {
		t.Errorf("preConstruction = %v, want 10000", e.PreConstructionCosts.Total)
	}
	if e.IndirectCosts.Total != 2000 {
		t.Errorf("indirect = %v, want 2000", e.IndirectCosts.Total)
	}
	if e.DirectConstructionCosts.Total != 88000 {
		t.Errorf("dcc = %v, want 88000", e.DirectConstructionCosts.Total)
	}
}

func TestConvertWarnsOnOverAllocation(t *testing.T) {
	l := Legacy{Total: 10000, Materials: 9000, Labour: 2000, Contingency: 500}

	e, warnings := ConvertLegacyToEnhanced(l, DefaultPolicy())
	if e.DirectConstructionCosts.Total != 8500 {
		t.Fatalf("dcc = %v, want 8500", e.DirectConstructionCosts.Total)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "exceed derived direct construction costs") {
		t.Fatalf("expected over-allocation warning, got %v", warnings)
	}
}

func TestConvertClampsNegativeDirectCosts(t *testing.T) {
	l := Legacy{Total: 1000, Contingency: 950}

	e, warnings := ConvertLegacyToEnhanced(l, DefaultPolicy())
	if e.DirectConstructionCosts.Total != 0 {
		t.Fatalf("dcc = %v, want 0 after clamping", e.DirectConstructionCosts.Total)
	}
	if len(warnings) == 0 {
		t.Fatalf("expected a clamp warning")
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid budget", func(t *testing.T) {
		v := Validate(validEnhanced(), money.DefaultTolerance)
		if !v.Valid {
			t.Fatalf("expected valid, got errors: %v", v.Errors)
		}
	})

	t.Run("negative amount", func(t *testing.T) {
		e := validEnhanced()
		e.DirectConstructionCosts.Labour = -1

		v := Validate(e, money.DefaultTolerance)
		if v.Valid {
			t.Fatalf("expected invalid")
		}
		if !strings.Contains(strings.Join(v.Errors, "; "), "labour") {
			t.Errorf("expected labour in errors, got %v", v.Errors)
		}
	})

	t.Run("sections drift from total", func(t *testing.T) {
		e := validEnhanced()
		e.Total = 120000

		v := Validate(e, money.DefaultTolerance)
		if v.Valid {
			t.Fatalf("expected invalid when sections sum to 100000 against a 120000 total")
		}
	})

	t.Run("children exceed section", func(t *testing.T) {
		e := validEnhanced()
		e.DirectConstructionCosts.Equipment = 50000

		v := Validate(e, money.DefaultTolerance)
		if v.Valid {
			t.Fatalf("expected invalid when direct cost children overrun the section")
		}
	})

	t.Run("under-allocation is allowed", func(t *testing.T) {
		e := validEnhanced()
		e.DirectConstructionCosts.Subcontractors = 0

		v := Validate(e, money.DefaultTolerance)
		if !v.Valid {
			t.Fatalf("under-allocated section should validate, got errors: %v", v.Errors)
		}
	})

	t.Run("drift within tolerance passes", func(t *testing.T) {
		e := validEnhanced()
		e.Total = 100000.50

		v := Validate(e, money.DefaultTolerance)
		if !v.Valid {
			t.Fatalf("0.50 drift on 100000 is inside the 1%% band, got errors: %v", v.Errors)
		}
	})
}

func TestMoveCategory(t *testing.T) {
	t.Run("moves allocation", func(t *testing.T) {
		e := validEnhanced()
		if err := MoveCategory(&e, CategoryMaterials, CategoryLabour, 10000); err != nil {
			t.Fatalf("MoveCategory returned error: %v", err)
		}
		if e.DirectConstructionCosts.Materials != 30000 {
			t.Errorf("materials = %v, want 30000", e.DirectConstructionCosts.Materials)
		}
		if e.DirectConstructionCosts.Labour != 40000 {
			t.Errorf("labour = %v, want 40000", e.DirectConstructionCosts.Labour)
		}
		if e.DirectConstructionCosts.Total != 85000 {
			t.Errorf("section total changed to %v, want 85000", e.DirectConstructionCosts.Total)
		}
		if e.Total != 100000 {
			t.Errorf("budget total changed to %v, want 100000", e.Total)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		e := validEnhanced()
		err := MoveCategory(&e, CategorySubcontractors, CategoryLabour, 99999)
		if err == nil || !strings.Contains(err.Error(), "insufficient") {
			t.Fatalf("expected insufficient balance error, got %v", err)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		e := validEnhanced()
		if err := MoveCategory(&e, "paint", CategoryLabour, 10); err == nil {
			t.Fatalf("expected error for unknown category")
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		e := validEnhanced()
		if err := MoveCategory(&e, CategoryMaterials, CategoryLabour, 0); err == nil {
			t.Fatalf("expected error for zero amount")
		}
	})
}

func TestNormalizeUpgradesLegacy(t *testing.T) {
	raw := json.RawMessage(`{"total":100000,"materials":40000,"labour":30000,"contingency":5000}`)

	e, shape, warnings, err := Normalize(raw, DefaultPolicy())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if shape != ShapeLegacy {
		t.Errorf("shape = %q, want %q", shape, ShapeLegacy)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if e.DirectConstructionCosts.Total != 85000 {
		t.Errorf("dcc = %v, want 85000", e.DirectConstructionCosts.Total)
	}
}
