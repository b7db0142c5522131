package catalog

import (
	"skusync/internal/core/id"
	"skusync/internal/core/types"
)

// Index is an id lookup over a product snapshot.
type Index map[id.ID]*Product

// BuildIndex builds an Index from a product slice.
func BuildIndex(products []*Product) Index {
	idx := make(Index, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}

// Lookup returns the product for the given id, or nil if the reference
// is dangling. Danglers are reported by validation, never auto-removed.
func (idx Index) Lookup(productID id.ID) *Product {
	return idx[productID]
}

// ResolveCost computes a product's purchase cost against the snapshot.
//
// Simple products keep their stored cost; the stored value is
// authoritative. Composite products sum their components' stored cost
// times quantity, one level deep. A dangling component reference
// contributes zero to the sum; the validator reports it separately.
func ResolveCost(p *Product, idx Index) types.Money {
	if !p.IsComposite() {
		return p.PurchaseCost
	}

	total := types.ZeroMoney
	for _, c := range p.Components {
		comp := idx.Lookup(c.ComponentID)
		if comp == nil {
			continue
		}
		total = total.Add(comp.PurchaseCost.Mul(types.MoneyFromInt(int64(c.Quantity))))
	}
	return total
}

// AffectedComposites returns, in snapshot order, every composite other
// than componentID itself whose BOM references componentID. These are
// the products whose stored cost goes stale when the component changes.
func AffectedComposites(componentID id.ID, products []*Product) []*Product {
	var out []*Product
	for _, p := range products {
		if p.ID == componentID || !p.IsComposite() {
			continue
		}
		if p.UsesComponent(componentID) {
			out = append(out, p)
		}
	}
	return out
}
