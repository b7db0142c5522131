package catalog

import (
	"context"

	"skusync/internal/core/id"
	"skusync/internal/domain/pricing"
)

// Repository defines product persistence. Save upserts the product row
// and replaces the BOM child relation wholesale; a SKU unique-constraint
// violation must surface as a duplicate error distinct from generic
// storage failure.
type Repository interface {
	// List retrieves the full product snapshot.
	List(ctx context.Context) ([]*Product, error)

	// Get retrieves one product with its BOM.
	Get(ctx context.Context, productID id.ID) (*Product, error)

	// Save upserts a product and its BOM.
	Save(ctx context.Context, p *Product) error

	// Delete removes a product. BOM references held by other products
	// are left dangling on purpose; validation surfaces them.
	Delete(ctx context.Context, productID id.ID) error
}

// MarginMemory remembers the last used margin per price list, so new
// products start from the margins the user applied most recently.
type MarginMemory interface {
	Get(ctx context.Context, list pricing.PriceList) (*float64, error)
	Set(ctx context.Context, list pricing.PriceList, margin float64) error
}
