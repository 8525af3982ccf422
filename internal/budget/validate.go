package budget

import (
	"fmt"

	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
)

// Validation is the structured outcome of a budget check. Callers branch
// on Valid; Errors carry one message per violated rule.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks an enhanced budget: no negative amounts, top level
// sections summing to the total within tolerance, and no section whose
// children overrun its own total. Children may sum to less than their
// section (the difference is simply unallocated).
func Validate(e Enhanced, tol money.Tolerance) Validation {
	var errs []string

	fields := []struct {
		name  string
		value float64
	}{
		{"total", e.Total},
		{"directConstructionCosts.total", e.DirectConstructionCosts.Total},
		{"directConstructionCosts.materials", e.DirectConstructionCosts.Materials},
		{"directConstructionCosts.labour", e.DirectConstructionCosts.Labour},
		{"directConstructionCosts.equipment", e.DirectConstructionCosts.Equipment},
		{"directConstructionCosts.subcontractors", e.DirectConstructionCosts.Subcontractors},
		{"preConstructionCosts.total", e.PreConstructionCosts.Total},
		{"preConstructionCosts.design", e.PreConstructionCosts.Design},
		{"preConstructionCosts.permits", e.PreConstructionCosts.Permits},
		{"preConstructionCosts.siteInvestigation", e.PreConstructionCosts.SiteInvestigation},
		{"indirectCosts.total", e.IndirectCosts.Total},
		{"indirectCosts.siteOverheads", e.IndirectCosts.SiteOverheads},
		{"indirectCosts.insurance", e.IndirectCosts.Insurance},
		{"indirectCosts.bonds", e.IndirectCosts.Bonds},
		{"contingencyReserve", e.ContingencyReserve},
	}
	for _, f := range fields {
		if f.value < 0 {
			errs = append(errs, fmt.Sprintf("%s must not be negative, got %v", f.name, f.value))
		}
	}

	if sum := ComponentSum(e); !tol.WithinTolerance(sum, e.Total) {
		errs = append(errs, fmt.Sprintf(
			"top level sections sum to %v but total is %v (allowed drift %v)", sum, e.Total, tol.Allowed(e.Total)))
	}

	sections := []struct {
		name     string
		total    float64
		children float64
	}{
		{
			"directConstructionCosts",
			e.DirectConstructionCosts.Total,
			money.Sum(
				e.DirectConstructionCosts.Materials,
				e.DirectConstructionCosts.Labour,
				e.DirectConstructionCosts.Equipment,
				e.DirectConstructionCosts.Subcontractors,
			),
		},
		{
			"preConstructionCosts",
			e.PreConstructionCosts.Total,
			money.Sum(
				e.PreConstructionCosts.Design,
				e.PreConstructionCosts.Permits,
				e.PreConstructionCosts.SiteInvestigation,
			),
		},
		{
			"indirectCosts",
			e.IndirectCosts.Total,
			money.Sum(
				e.IndirectCosts.SiteOverheads,
				e.IndirectCosts.Insurance,
				e.IndirectCosts.Bonds,
			),
		},
	}
	for _, s := range sections {
		if s.children > money.Sum(s.total, tol.Allowed(s.total)) {
			errs = append(errs, fmt.Sprintf(
				"%s allocations sum to %v, exceeding the section total %v", s.name, s.children, s.total))
		}
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}
