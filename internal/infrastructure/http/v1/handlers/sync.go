package handlers

import (
	"github.com/gin-gonic/gin"

	syncdomain "skusync/internal/domain/sync"
	"skusync/internal/infrastructure/http/v1/dto"
)

// SyncHandler handles CRM sync endpoints.
type SyncHandler struct {
	*BaseHandler
	service *syncdomain.Service
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(service *syncdomain.Service) *SyncHandler {
	return &SyncHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// SyncOne pushes a single product to the CRM.
// POST /api/v1/sync/products/:id
func (h *SyncHandler) SyncOne(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	product, err := h.service.SyncOne(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(product))
}

// SyncAll pushes every pending product, one by one. Individual
// failures are reported in the summary instead of aborting the run.
// POST /api/v1/sync/products
func (h *SyncHandler) SyncAll(c *gin.Context) {
	summary, err := h.service.SyncAll(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSummary(summary))
}
