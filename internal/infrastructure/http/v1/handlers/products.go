package handlers

import (
	"github.com/gin-gonic/gin"

	"skusync/internal/core/apperror"
	"skusync/internal/core/id"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/pricing"
	"skusync/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	*BaseHandler
	service *catalog.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service *catalog.Service) *ProductHandler {
	return &ProductHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// List returns the full product catalog.
// GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProducts(products))
}

// Get returns one product.
// GET /api/v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	product, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(product))
}

// Template returns an unsaved product draft with margins pre-filled
// from the last values the user applied.
// GET /api/v1/products/template?kind=simple|composite
func (h *ProductHandler) Template(c *gin.Context) {
	kind := catalog.Kind(c.DefaultQuery("kind", string(catalog.KindSimple)))
	if kind != catalog.KindSimple && kind != catalog.KindComposite {
		h.Error(c, apperror.NewInvalidInput("unknown product kind").WithDetail("kind", string(kind)))
		return
	}

	draft := h.service.NewProduct(c.Request.Context(), kind)
	h.OK(c, dto.FromProduct(draft))
}

// Save creates or updates a product, recomputing its prices and
// cascading cost changes into dependent composites.
// POST /api/v1/products
func (h *ProductHandler) Save(c *gin.Context) {
	var req dto.SaveProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	persisted, err := h.service.Save(c.Request.Context(), product)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.SaveProductResponse{Product: dto.FromProduct(persisted[0])}
	if len(persisted) > 1 {
		resp.Cascaded = dto.FromProducts(persisted[1:])
	}
	h.OK(c, resp)
}

// Delete removes a product.
// DELETE /api/v1/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Validate reports sync eligibility for one product without
// touching it.
// GET /api/v1/products/:id/validate
func (h *ProductHandler) Validate(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	product, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Validate(c.Request.Context(), product)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromValidation(result))
}

// BulkMargins applies one margin to a price list across several
// products. Items fail independently.
// POST /api/v1/products/bulk-margins
func (h *ProductHandler) BulkMargins(c *gin.Context) {
	var req dto.BulkMarginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	list := pricing.PriceList(req.PriceList)
	known := false
	for _, l := range pricing.PriceLists() {
		if l == list {
			known = true
			break
		}
	}
	if !known {
		h.Error(c, apperror.NewInvalidInput("unknown price list").WithDetail("priceList", req.PriceList))
		return
	}

	productIDs := make([]id.ID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewInvalidInput("invalid product id").WithDetail("id", raw))
			return
		}
		productIDs = append(productIDs, parsed)
	}

	updated, failed, err := h.service.BulkSetMargins(c.Request.Context(), productIDs, list, req.Margin)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.BulkMarginResponse{Updated: updated}
	for _, f := range failed {
		resp.Failed = append(resp.Failed, f.String())
	}
	h.OK(c, resp)
}
