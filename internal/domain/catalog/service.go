package catalog

import (
	"context"
	"fmt"
	"strings"

	"skusync/internal/core/apperror"
	"skusync/internal/core/id"
	"skusync/internal/domain/activity"
	"skusync/internal/domain/pricing"
	"skusync/internal/domain/settings"
	"skusync/pkg/logger"
)

// Service provides business logic for the product catalog.
type Service struct {
	repo     Repository
	margins  MarginMemory
	settings *settings.Service
	activity activity.Recorder
	orch     *Orchestrator
}

// NewService creates a new catalog service.
func NewService(repo Repository, margins MarginMemory, settingsSvc *settings.Service, recorder activity.Recorder) *Service {
	return &Service{
		repo:     repo,
		margins:  margins,
		settings: settingsSvc,
		activity: recorder,
		orch:     NewOrchestrator(),
	}
}

// List returns the full product snapshot.
func (s *Service) List(ctx context.Context) ([]*Product, error) {
	return s.repo.List(ctx)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.Get(ctx, productID)
}

// NewProduct builds an unsaved product of the given kind with margins
// seeded from the last ones the user applied.
func (s *Service) NewProduct(ctx context.Context, kind Kind) *Product {
	seed := make(map[pricing.PriceList]*float64)
	for _, list := range pricing.PriceLists() {
		margin, err := s.margins.Get(ctx, list)
		if err != nil {
			logger.Warn(ctx, "margin memory read failed", "price_list", list, "error", err)
			continue
		}
		seed[list] = margin
	}
	return NewProduct(kind, seed)
}

// Save validates blocking rules, recomputes the edited product and its
// dependent composites, and persists the whole set in cascade order
// (edited first). It returns the persisted set.
//
// A failed validation does not block saving — incomplete products are a
// normal editing state — with two exceptions: a duplicate SKU, and a
// composite whose BOM references anything but a simple product.
func (s *Service) Save(ctx context.Context, edited *Product) ([]*Product, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.checkBlockingRules(edited, all); err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	toPersist := s.orch.ApplySave(edited, all, cfg.Formulas())
	carrySyncState(toPersist[0], all)
	for _, p := range toPersist {
		if err := s.repo.Save(ctx, p); err != nil {
			s.record(ctx, activity.KindError, fmt.Sprintf("Failed to save product %s", p.SKU), map[string]any{"error": err.Error()})
			return nil, err
		}
	}

	s.rememberMargins(ctx, toPersist[0])

	s.record(ctx, activity.KindSuccess,
		fmt.Sprintf("Saved product: %s", toPersist[0].SKU),
		map[string]any{"id": toPersist[0].ID, "name": toPersist[0].Name, "cascaded": len(toPersist) - 1},
	)
	return toPersist, nil
}

// Delete removes a product. Composites referencing it keep their now
// dangling BOM lines; the validator is the recovery signal for those.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, productID); err != nil {
		return err
	}

	s.record(ctx, activity.KindWarning,
		fmt.Sprintf("Deleted product: %s", p.SKU),
		map[string]any{"id": p.ID},
	)
	return nil
}

// BulkSetMargins applies one margin to the given price list of several
// products, re-running the full save pipeline per product. Items fail
// independently; one bad product does not abort the batch.
func (s *Service) BulkSetMargins(ctx context.Context, productIDs []id.ID, list pricing.PriceList, margin float64) (updated int, failed []id.ID, err error) {
	for _, productID := range productIDs {
		p, getErr := s.repo.Get(ctx, productID)
		if getErr != nil {
			failed = append(failed, productID)
			continue
		}

		edited := p.Clone()
		entry := edited.PriceEntry(list)
		if entry == nil {
			failed = append(failed, productID)
			continue
		}
		m := margin
		entry.Discount = &m

		if _, saveErr := s.Save(ctx, edited); saveErr != nil {
			logger.Warn(ctx, "bulk margin update failed for product",
				"product_id", productID, "error", saveErr)
			failed = append(failed, productID)
			continue
		}
		updated++
	}

	s.record(ctx, activity.KindSuccess,
		fmt.Sprintf("Bulk updated margins on %d products", updated),
		map[string]any{"priceList": list, "margin": margin, "failed": len(failed)},
	)
	return updated, failed, nil
}

// Validate exposes sync-eligibility validation against the current snapshot.
func (s *Service) Validate(ctx context.Context, p *Product) (ValidationResult, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	return Validate(p, all), nil
}

// checkBlockingRules enforces the two conditions that refuse a save
// outright: duplicate SKU, and a composite whose BOM references a
// missing-kind or composite product. Both are checked independently of
// the validator's short-circuit order, since a save must not slip
// through on an earlier, non-blocking failure.
func (s *Service) checkBlockingRules(edited *Product, all []*Product) error {
	sku := strings.TrimSpace(edited.SKU)
	if sku != "" {
		for _, other := range all {
			if other.ID != edited.ID && strings.EqualFold(strings.TrimSpace(other.SKU), sku) {
				return apperror.NewDuplicate("product", "sku", edited.SKU)
			}
		}
	}

	if edited.IsComposite() {
		// A product referenced by other composites cannot be composite
		// itself, or the one-level cost roll-up would go stale.
		if deps := AffectedComposites(edited.ID, all); len(deps) > 0 {
			return apperror.NewValidation("product is used as a component and cannot be composite").
				WithDetail("usedBy", deps[0].SKU)
		}

		idx := BuildIndex(all)
		for _, c := range edited.Components {
			if c.ComponentID == edited.ID {
				return apperror.NewValidation("a composite cannot reference itself")
			}
			comp := idx.Lookup(c.ComponentID)
			if comp != nil && comp.IsComposite() {
				return apperror.NewValidation("a composite's components must all be simple products").
					WithDetail("componentSku", comp.SKU)
			}
		}
	}
	return nil
}

// carrySyncState keeps the stored CRM reference and last-sync timestamp
// on updates. Clients do not send these fields back, and losing the
// reference would make the next sync create a duplicate upstream.
func carrySyncState(edited *Product, all []*Product) {
	for _, prior := range all {
		if prior.ID != edited.ID {
			continue
		}
		if edited.ExternalRef == nil {
			edited.ExternalRef = prior.ExternalRef
		}
		if edited.LastSyncedAt == nil {
			edited.LastSyncedAt = prior.LastSyncedAt
		}
		return
	}
}

// rememberMargins stores the saved product's configured margins as the
// seed for the next new product.
func (s *Service) rememberMargins(ctx context.Context, p *Product) {
	for _, entry := range p.Prices {
		if entry.Discount == nil {
			continue
		}
		if err := s.margins.Set(ctx, entry.PriceList, *entry.Discount); err != nil {
			logger.Warn(ctx, "margin memory write failed", "price_list", entry.PriceList, "error", err)
		}
	}
}

func (s *Service) record(ctx context.Context, kind activity.Kind, message string, details any) {
	if s.activity != nil {
		s.activity.Append(ctx, kind, message, details)
	}
}
