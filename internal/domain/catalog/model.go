// Package catalog provides the product catalog: simple and composite
// (bill-of-materials) products, cost roll-up, validation and the
// cascading recompute that runs on every save.
package catalog

import (
	"time"

	"skusync/internal/core/id"
	"skusync/internal/core/types"
	"skusync/internal/domain/pricing"
)

// Kind distinguishes directly-costed products from BOM products.
type Kind string

const (
	KindSimple    Kind = "simple"
	KindComposite Kind = "composite"
)

// Component is one BOM line of a composite product. It references a
// product by id; it does not own it. Deleting the referenced product
// leaves the reference dangling, which validation surfaces.
type Component struct {
	ComponentID id.ID `json:"componentId"`
	Quantity    int   `json:"quantity"`
}

// Product is one catalog entry.
type Product struct {
	ID   id.ID  `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// PurchaseCost is directly editable for simple products and
	// exclusively derived from components for composite ones.
	PurchaseCost types.Money `json:"purchaseCost"`

	// Prices holds exactly one entry per known price list.
	Prices []pricing.Entry `json:"prices"`

	// Components is the ordered BOM (composite products only).
	Components []Component `json:"components,omitempty"`

	// ExternalRef is the id assigned by the external CRM once synced.
	ExternalRef *string `json:"externalRef,omitempty"`

	// SyncPending is true when local state changed since the last
	// successful external sync.
	SyncPending bool `json:"syncPending"`

	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	LastEditedAt *time.Time `json:"lastEditedAt,omitempty"`
}

// NewProduct creates a product of the given kind with a generated id,
// zero cost, sync pending, and one price entry per known price list
// seeded from the given margins.
func NewProduct(kind Kind, seedMargins map[pricing.PriceList]*float64) *Product {
	p := &Product{
		ID:           id.New(),
		Kind:         kind,
		PurchaseCost: types.ZeroMoney,
		Prices:       pricing.NewEntries(seedMargins),
		SyncPending:  true,
	}
	if kind == KindComposite {
		p.Components = []Component{}
	}
	return p
}

// IsComposite reports whether the product derives its cost from a BOM.
func (p *Product) IsComposite() bool {
	return p.Kind == KindComposite
}

// UsesComponent reports whether the BOM references the given product id.
func (p *Product) UsesComponent(componentID id.ID) bool {
	for _, c := range p.Components {
		if c.ComponentID == componentID {
			return true
		}
	}
	return false
}

// AddComponent appends a BOM line. A quantity of zero or less is
// coerced to 1 on insert; later edits may still set any value.
func (p *Product) AddComponent(componentID id.ID, quantity int) {
	if quantity <= 0 {
		quantity = 1
	}
	p.Components = append(p.Components, Component{ComponentID: componentID, Quantity: quantity})
}

// PriceEntry returns the entry for the given price list, or nil.
func (p *Product) PriceEntry(list pricing.PriceList) *pricing.Entry {
	for i := range p.Prices {
		if p.Prices[i].PriceList == list {
			return &p.Prices[i]
		}
	}
	return nil
}

// MarkSynced records a successful external sync.
func (p *Product) MarkSynced(externalRef string, at time.Time) {
	p.ExternalRef = &externalRef
	p.LastSyncedAt = &at
	p.SyncPending = false
}

// Clone returns a deep copy. Save and cascade computations work on
// copies so the caller's snapshot is never mutated in place.
func (p *Product) Clone() *Product {
	out := *p
	out.Prices = make([]pricing.Entry, len(p.Prices))
	for i, e := range p.Prices {
		if e.Discount != nil {
			d := *e.Discount
			e.Discount = &d
		}
		out.Prices[i] = e
	}
	if p.Components != nil {
		out.Components = append([]Component(nil), p.Components...)
	}
	if p.ExternalRef != nil {
		ref := *p.ExternalRef
		out.ExternalRef = &ref
	}
	if p.LastSyncedAt != nil {
		ts := *p.LastSyncedAt
		out.LastSyncedAt = &ts
	}
	if p.LastEditedAt != nil {
		ts := *p.LastEditedAt
		out.LastEditedAt = &ts
	}
	return &out
}
