package catalog

import (
	"fmt"
	"strings"

	"skusync/internal/core/id"
	"skusync/internal/core/types"
	"skusync/internal/domain/pricing"
)

// FailureKind identifies why a product is not sync-eligible.
type FailureKind string

const (
	FailMissingSKU         FailureKind = "missing_sku"
	FailDuplicateSKU       FailureKind = "duplicate_sku"
	FailMissingName        FailureKind = "missing_name"
	FailNonPositiveCost    FailureKind = "non_positive_cost"
	FailEmptyBOM           FailureKind = "empty_bom"
	FailMissingComponent   FailureKind = "missing_component"
	FailComponentNotSimple FailureKind = "component_not_simple"
	FailZeroCostComponent  FailureKind = "zero_cost_component"
	FailMarginNotSet       FailureKind = "margin_not_set"
)

// Failure describes the first failed validation rule. Validation
// outcomes are values, never errors: incomplete products are an
// expected state during editing.
type Failure struct {
	Kind FailureKind

	// ComponentID is set for missing_component.
	ComponentID id.ID

	// ComponentSKU is set for component_not_simple and zero_cost_component.
	ComponentSKU string

	// PriceList is set for margin_not_set.
	PriceList pricing.PriceList
}

// Message renders the user-facing description of the failure.
func (f Failure) Message() string {
	switch f.Kind {
	case FailMissingSKU:
		return "Missing SKU"
	case FailDuplicateSKU:
		return "SKU must be unique"
	case FailMissingName:
		return "Missing Name"
	case FailNonPositiveCost:
		return "Purchase cost must be greater than 0"
	case FailEmptyBOM:
		return "No components added"
	case FailMissingComponent:
		return fmt.Sprintf("Component (ID: %s) not found", f.ComponentID)
	case FailComponentNotSimple:
		return fmt.Sprintf("Component '%s' is not a simple product", f.ComponentSKU)
	case FailZeroCostComponent:
		return fmt.Sprintf("Component '%s' has 0 cost", f.ComponentSKU)
	case FailMarginNotSet:
		return fmt.Sprintf("Margin not set for %s", f.PriceList)
	default:
		return string(f.Kind)
	}
}

// ValidationResult reports sync eligibility. Failure is nil iff Valid.
type ValidationResult struct {
	Valid   bool
	Failure *Failure
}

func invalid(f Failure) ValidationResult {
	return ValidationResult{Failure: &f}
}

// Validate decides whether a product is sync-eligible. Checks run in a
// fixed order and stop at the first failure; only that failure is
// surfaced to the user, so the order is part of the contract:
//
//  1. SKU present
//  2. SKU unique (case-insensitive, trimmed, excluding self)
//  3. name present
//  4. simple: positive purchase cost
//  5. composite: non-empty BOM; each component in list order must
//     resolve, be a simple product, and have a positive cost
//  6. each price entry in fixed list order must have its margin set
//
// An invalid product is still savable (the save path layers its own
// blocking rules on top); it is never eligible for sync.
func Validate(p *Product, allProducts []*Product) ValidationResult {
	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		return invalid(Failure{Kind: FailMissingSKU})
	}

	for _, other := range allProducts {
		if other.ID == p.ID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(other.SKU), sku) {
			return invalid(Failure{Kind: FailDuplicateSKU})
		}
	}

	if strings.TrimSpace(p.Name) == "" {
		return invalid(Failure{Kind: FailMissingName})
	}

	if p.Kind == KindSimple && !types.IsPositive(p.PurchaseCost) {
		return invalid(Failure{Kind: FailNonPositiveCost})
	}

	if p.IsComposite() {
		if len(p.Components) == 0 {
			return invalid(Failure{Kind: FailEmptyBOM})
		}

		idx := BuildIndex(allProducts)
		for _, c := range p.Components {
			comp := idx.Lookup(c.ComponentID)
			if comp == nil {
				return invalid(Failure{Kind: FailMissingComponent, ComponentID: c.ComponentID})
			}
			if comp.IsComposite() {
				return invalid(Failure{Kind: FailComponentNotSimple, ComponentSKU: comp.SKU})
			}
			if !types.IsPositive(comp.PurchaseCost) {
				return invalid(Failure{Kind: FailZeroCostComponent, ComponentSKU: comp.SKU})
			}
		}
	}

	for _, entry := range p.Prices {
		if entry.Discount == nil {
			return invalid(Failure{Kind: FailMarginNotSet, PriceList: entry.PriceList})
		}
	}

	return ValidationResult{Valid: true}
}
