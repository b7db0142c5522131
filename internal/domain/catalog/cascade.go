package catalog

import (
	"time"

	"skusync/internal/domain/pricing"
)

// Orchestrator computes the full set of products that must be persisted
// after one save, so stored costs and prices stay consistent.
type Orchestrator struct {
	now func() time.Time
}

// NewOrchestrator creates an orchestrator using wall-clock time.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{now: func() time.Time { return time.Now().UTC() }}
}

// NewOrchestratorAt creates an orchestrator with an injected clock.
func NewOrchestratorAt(now func() time.Time) *Orchestrator {
	return &Orchestrator{now: now}
}

// ApplySave recomputes the edited product and every composite directly
// affected by it, returning the products to persist in order:
//
//  1. The edited product is stamped sync-pending, its cost resolved
//     (a no-op for simple products) and its prices recomputed.
//  2. If the edited product is simple, every composite referencing it
//     is recomputed against the updated snapshot and stamped too.
//  3. The edited product comes first in the result, before its
//     dependents, so a reader observing a composite's new cost can
//     always resolve the updated component.
//
// Because a composite's BOM may only reference simple products (the
// save path enforces this), one cascade level covers every dependent.
//
// The input snapshot is never mutated; results are fresh copies.
func (o *Orchestrator) ApplySave(edited *Product, allProducts []*Product, formulas pricing.Formulas) []*Product {
	now := o.now()

	out := edited.Clone()
	out.SyncPending = true
	out.LastEditedAt = &now

	// Snapshot with the edited values in place of the stored ones.
	snapshot := make([]*Product, 0, len(allProducts)+1)
	replaced := false
	for _, p := range allProducts {
		if p.ID == out.ID {
			snapshot = append(snapshot, out)
			replaced = true
			continue
		}
		snapshot = append(snapshot, p)
	}
	if !replaced {
		snapshot = append(snapshot, out)
	}

	idx := BuildIndex(snapshot)
	out.PurchaseCost = ResolveCost(out, idx)
	out.Prices = pricing.ComputePrices(out.PurchaseCost, out.Prices, formulas)

	result := []*Product{out}
	if out.Kind != KindSimple {
		return result
	}

	for _, affected := range AffectedComposites(out.ID, snapshot) {
		dep := affected.Clone()
		dep.PurchaseCost = ResolveCost(dep, idx)
		dep.Prices = pricing.ComputePrices(dep.PurchaseCost, dep.Prices, formulas)
		dep.SyncPending = true
		dep.LastEditedAt = &now
		result = append(result, dep)
	}
	return result
}
