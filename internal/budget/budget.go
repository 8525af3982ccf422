// Package budget models project budgets. Two shapes exist in the wild: the
// flat legacy shape from the first release and the enhanced shape that
// breaks costs into direct construction, pre-construction, indirect and
// contingency sections. Everything downstream works on the enhanced shape;
// legacy budgets are upgraded on the way in.
package budget

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
)

var (
	ErrUnknownShape        = errors.New("budget shape not recognized")
	ErrUnknownCategory     = errors.New("unknown direct cost category")
	ErrInsufficientBalance = errors.New("insufficient category allocation")
)

// Shape identifies which representation a stored budget uses.
type Shape string

const (
	ShapeEnhanced Shape = "enhanced"
	ShapeLegacy   Shape = "legacy"
	ShapeUnknown  Shape = "unknown"
)

// Budget is the tagged union produced by Parse. Exactly one of Enhanced
// or Legacy is set, matching Shape.
type Budget struct {
	Shape    Shape
	Enhanced *Enhanced
	Legacy   *Legacy
}

type Enhanced struct {
	Total                   float64         `json:"total"`
	DirectConstructionCosts DirectCosts     `json:"directConstructionCosts"`
	PreConstructionCosts    PreConstruction `json:"preConstructionCosts"`
	IndirectCosts           Indirect        `json:"indirectCosts"`
	ContingencyReserve      float64         `json:"contingencyReserve"`
}

type DirectCosts struct {
	Total          float64 `json:"total"`
	Materials      float64 `json:"materials"`
	Labour         float64 `json:"labour"`
	Equipment      float64 `json:"equipment"`
	Subcontractors float64 `json:"subcontractors"`
}

type PreConstruction struct {
	Total             float64 `json:"total"`
	Design            float64 `json:"design"`
	Permits           float64 `json:"permits"`
	SiteInvestigation float64 `json:"siteInvestigation"`
}

type Indirect struct {
	Total         float64 `json:"total"`
	SiteOverheads float64 `json:"siteOverheads"`
	Insurance     float64 `json:"insurance"`
	Bonds         float64 `json:"bonds"`
}

type Legacy struct {
	Total       float64 `json:"total"`
	Materials   float64 `json:"materials"`
	Labour      float64 `json:"labour"`
	Contingency float64 `json:"contingency"`
}

// DetectShape classifies a raw budget document without fully decoding it.
// A directConstructionCosts key marks the enhanced shape; the legacy shape
// is the flat document the first release wrote.
func DetectShape(raw json.RawMessage) Shape {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ShapeUnknown
	}

	if _, ok := probe["directConstructionCosts"]; ok {
		return ShapeEnhanced
	}
	// Early enhanced documents wrote the direct section under directCosts.
	if _, ok := probe["directCosts"]; ok {
		return ShapeEnhanced
	}

	if _, ok := probe["total"]; ok {
		return ShapeLegacy
	}

	return ShapeUnknown
}

// Parse decodes a raw budget document into the tagged union.
func Parse(raw json.RawMessage) (Budget, error) {
	switch DetectShape(raw) {
	case ShapeEnhanced:
		var e Enhanced
		if err := json.Unmarshal(raw, &e); err != nil {
			return Budget{Shape: ShapeUnknown}, fmt.Errorf("failed to decode enhanced budget: %w", err)
		}
		if e.DirectConstructionCosts == (DirectCosts{}) {
			var alias struct {
				DirectCosts DirectCosts `json:"directCosts"`
			}
			if err := json.Unmarshal(raw, &alias); err == nil {
				e.DirectConstructionCosts = alias.DirectCosts
			}
		}
		return Budget{Shape: ShapeEnhanced, Enhanced: &e}, nil
	case ShapeLegacy:
		var l Legacy
		if err := json.Unmarshal(raw, &l); err != nil {
			return Budget{Shape: ShapeUnknown}, fmt.Errorf("failed to decode legacy budget: %w", err)
		}
		return Budget{Shape: ShapeLegacy, Legacy: &l}, nil
	default:
		return Budget{Shape: ShapeUnknown}, ErrUnknownShape
	}
}

// ComponentSum recomputes the budget total from its four top level sections.
func ComponentSum(e Enhanced) float64 {
	return money.Sum(
		e.DirectConstructionCosts.Total,
		e.PreConstructionCosts.Total,
		e.IndirectCosts.Total,
		e.ContingencyReserve,
	)
}

// Total returns the stated budget total, falling back to the component sum
// for documents that never carried one.
func Total(e Enhanced) float64 {
	if e.Total > 0 {
		return e.Total
	}
	return ComponentSum(e)
}

// Direct cost category names used by budget transfers.
const (
	CategoryMaterials      = "materials"
	CategoryLabour         = "labour"
	CategoryEquipment      = "equipment"
	CategorySubcontractors = "subcontractors"
)

func categoryAmount(d DirectCosts, category string) (float64, bool) {
	switch category {
	case CategoryMaterials:
		return d.Materials, true
	case CategoryLabour:
		return d.Labour, true
	case CategoryEquipment:
		return d.Equipment, true
	case CategorySubcontractors:
		return d.Subcontractors, true
	default:
		return 0, false
	}
}

func setCategoryAmount(d *DirectCosts, category string, amount float64) {
	switch category {
	case CategoryMaterials:
		d.Materials = amount
	case CategoryLabour:
		d.Labour = amount
	case CategoryEquipment:
		d.Equipment = amount
	case CategorySubcontractors:
		d.Subcontractors = amount
	}
}

// MoveCategory shifts amount from one direct cost category to another.
// Section and budget totals are untouched; only the split between the
// four categories changes.
func MoveCategory(e *Enhanced, from, to string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %v", amount)
	}
	if from == to {
		return fmt.Errorf("%w: source and destination are both %q", ErrUnknownCategory, from)
	}

	fromAmount, ok := categoryAmount(e.DirectConstructionCosts, from)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, from)
	}
	toAmount, ok := categoryAmount(e.DirectConstructionCosts, to)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, to)
	}

	if fromAmount < amount {
		return fmt.Errorf("%w: %q holds %v, need %v", ErrInsufficientBalance, from, fromAmount, amount)
	}

	setCategoryAmount(&e.DirectConstructionCosts, from, money.Sum(fromAmount, -amount))
	setCategoryAmount(&e.DirectConstructionCosts, to, money.Sum(toAmount, amount))
	return nil
}
