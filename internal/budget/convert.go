package budget

import (
	"encoding/json"
	"fmt"

	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
)

// Policy drives the legacy upgrade: the share of the total set aside for
// pre-construction and indirect costs when the legacy document carries no
// such sections. Both default to 5% and are operator tunable.
type Policy struct {
	PreConstructionPct float64
	IndirectPct        float64
}

// DefaultPolicy mirrors the standard policy file defaults.
func DefaultPolicy() Policy {
	return Policy{PreConstructionPct: 0.05, IndirectPct: 0.05}
}

// ConvertLegacyToEnhanced upgrades a flat legacy budget. Pre-construction
// and indirect sections are carved out of the total per the policy, the
// contingency carries over, and whatever remains becomes direct
// construction costs. Conversion never fails; anomalies come back as
// warnings for the caller to surface.
func ConvertLegacyToEnhanced(l Legacy, p Policy) (Enhanced, []string) {
	var warnings []string

	pre := money.LineTotal(l.Total, p.PreConstructionPct)
	ind := money.LineTotal(l.Total, p.IndirectPct)
	dcc := money.Sum(l.Total, -pre, -ind, -l.Contingency)

	if dcc < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"derived direct construction costs were negative (%v); clamped to 0, review contingency reserve", dcc))
		dcc = 0
	}

	if allocated := money.Sum(l.Materials, l.Labour); allocated > dcc {
		warnings = append(warnings, fmt.Sprintf(
			"materials and labour allocations (%v) exceed derived direct construction costs (%v)", allocated, dcc))
	}

	e := Enhanced{
		Total: l.Total,
		DirectConstructionCosts: DirectCosts{
			Total:     dcc,
			Materials: l.Materials,
			Labour:    l.Labour,
		},
		PreConstructionCosts: PreConstruction{Total: pre},
		IndirectCosts:        Indirect{Total: ind},
		ContingencyReserve:   l.Contingency,
	}

	return e, warnings
}

// Normalize takes a raw stored budget and returns its enhanced form,
// upgrading legacy documents along the way. The returned shape reports
// what the document looked like before normalization.
func Normalize(raw json.RawMessage, p Policy) (Enhanced, Shape, []string, error) {
	b, err := Parse(raw)
	if err != nil {
		return Enhanced{}, ShapeUnknown, nil, err
	}

	switch b.Shape {
	case ShapeEnhanced:
		return *b.Enhanced, ShapeEnhanced, nil, nil
	case ShapeLegacy:
		e, warnings := ConvertLegacyToEnhanced(*b.Legacy, p)
		return e, ShapeLegacy, warnings, nil
	default:
		return Enhanced{}, ShapeUnknown, nil, ErrUnknownShape
	}
}
