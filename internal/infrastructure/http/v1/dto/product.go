package dto

import (
	"time"

	"skusync/internal/core/apperror"
	"skusync/internal/core/id"
	"skusync/internal/core/types"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/pricing"
)

// PriceEntry is one price-list row. Amounts travel as JSON numbers.
type PriceEntry struct {
	PriceList       string   `json:"priceList"`
	CalculatedPrice float64  `json:"calculatedPrice"`
	Discount        *float64 `json:"discount"`
	FinalPrice      float64  `json:"finalPrice"`
}

// Component is one bill-of-materials line.
type Component struct {
	ComponentID string `json:"componentId"`
	Quantity    int    `json:"quantity"`
}

// ProductResponse is a full product.
type ProductResponse struct {
	ID           string       `json:"id"`
	SKU          string       `json:"sku"`
	Name         string       `json:"name"`
	Kind         string       `json:"kind"`
	PurchaseCost float64      `json:"purchaseCost"`
	Prices       []PriceEntry `json:"prices"`
	Components   []Component  `json:"components,omitempty"`
	ExternalRef  *string      `json:"externalRef,omitempty"`
	SyncPending  bool         `json:"syncPending"`
	LastSyncedAt *time.Time   `json:"lastSyncedAt,omitempty"`
	LastEditedAt *time.Time   `json:"lastEditedAt,omitempty"`
}

// FromProduct maps a domain product to its API shape.
func FromProduct(p *catalog.Product) ProductResponse {
	prices := make([]PriceEntry, 0, len(p.Prices))
	for _, entry := range p.Prices {
		prices = append(prices, PriceEntry{
			PriceList:       string(entry.PriceList),
			CalculatedPrice: types.Float64(entry.CalculatedPrice),
			Discount:        entry.Discount,
			FinalPrice:      types.Float64(entry.FinalPrice),
		})
	}

	components := make([]Component, 0, len(p.Components))
	for _, c := range p.Components {
		components = append(components, Component{
			ComponentID: c.ComponentID.String(),
			Quantity:    c.Quantity,
		})
	}

	return ProductResponse{
		ID:           p.ID.String(),
		SKU:          p.SKU,
		Name:         p.Name,
		Kind:         string(p.Kind),
		PurchaseCost: types.Float64(p.PurchaseCost),
		Prices:       prices,
		Components:   components,
		ExternalRef:  p.ExternalRef,
		SyncPending:  p.SyncPending,
		LastSyncedAt: p.LastSyncedAt,
		LastEditedAt: p.LastEditedAt,
	}
}

// FromProducts maps a product list.
func FromProducts(products []*catalog.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, FromProduct(p))
	}
	return out
}

// SaveProductRequest is the save payload. The id is optional: absent
// means a new product.
type SaveProductRequest struct {
	ID           string       `json:"id"`
	SKU          string       `json:"sku"`
	Name         string       `json:"name"`
	Kind         string       `json:"kind" binding:"required,oneof=simple composite"`
	PurchaseCost float64      `json:"purchaseCost"`
	Prices       []PriceEntry `json:"prices"`
	Components   []Component  `json:"components"`
	ExternalRef  *string      `json:"externalRef"`
}

// ToDomain converts the request into a domain product.
func (r SaveProductRequest) ToDomain() (*catalog.Product, error) {
	productID := id.New()
	if r.ID != "" {
		parsed, err := id.Parse(r.ID)
		if err != nil {
			return nil, apperror.NewInvalidInput("invalid product id").WithDetail("id", r.ID)
		}
		productID = parsed
	}

	prices := make([]pricing.Entry, 0, len(r.Prices))
	for _, entry := range r.Prices {
		prices = append(prices, pricing.Entry{
			PriceList:       pricing.PriceList(entry.PriceList),
			CalculatedPrice: types.NewMoney(entry.CalculatedPrice),
			Discount:        entry.Discount,
			FinalPrice:      types.NewMoney(entry.FinalPrice),
		})
	}
	if len(prices) == 0 {
		prices = pricing.NewEntries(nil)
	}

	components := make([]catalog.Component, 0, len(r.Components))
	for _, c := range r.Components {
		componentID, err := id.Parse(c.ComponentID)
		if err != nil {
			return nil, apperror.NewInvalidInput("invalid component id").WithDetail("componentId", c.ComponentID)
		}
		components = append(components, catalog.Component{
			ComponentID: componentID,
			Quantity:    c.Quantity,
		})
	}

	return &catalog.Product{
		ID:           productID,
		SKU:          r.SKU,
		Name:         r.Name,
		Kind:         catalog.Kind(r.Kind),
		PurchaseCost: types.NewMoney(r.PurchaseCost),
		Prices:       prices,
		Components:   components,
		ExternalRef:  r.ExternalRef,
	}, nil
}

// SaveProductResponse returns the persisted set: the saved product
// plus every composite the save cascaded into.
type SaveProductResponse struct {
	Product  ProductResponse   `json:"product"`
	Cascaded []ProductResponse `json:"cascaded,omitempty"`
}

// ValidationFailure mirrors the validator's typed failure.
type ValidationFailure struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	ComponentID  string `json:"componentId,omitempty"`
	ComponentSKU string `json:"componentSku,omitempty"`
	PriceList    string `json:"priceList,omitempty"`
}

// ValidationResponse is the validity check result.
type ValidationResponse struct {
	Valid   bool               `json:"valid"`
	Failure *ValidationFailure `json:"failure,omitempty"`
}

// FromValidation maps a domain validation result.
func FromValidation(res catalog.ValidationResult) ValidationResponse {
	out := ValidationResponse{Valid: res.Valid}
	if res.Failure != nil {
		f := &ValidationFailure{
			Kind:         string(res.Failure.Kind),
			Message:      res.Failure.Message(),
			ComponentSKU: res.Failure.ComponentSKU,
			PriceList:    string(res.Failure.PriceList),
		}
		if !id.IsNil(res.Failure.ComponentID) {
			f.ComponentID = res.Failure.ComponentID.String()
		}
		out.Failure = f
	}
	return out
}

// BulkMarginRequest applies one margin to several products.
type BulkMarginRequest struct {
	ProductIDs []string `json:"productIds" binding:"required,min=1"`
	PriceList  string   `json:"priceList" binding:"required"`
	Margin     float64  `json:"margin"`
}

// BulkMarginResponse reports the batch outcome.
type BulkMarginResponse struct {
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}
