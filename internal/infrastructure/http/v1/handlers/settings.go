package handlers

import (
	"github.com/gin-gonic/gin"

	"skusync/internal/domain/pricing"
	"skusync/internal/domain/settings"
	"skusync/internal/infrastructure/http/v1/dto"
)

// SettingsHandler handles application settings endpoints.
type SettingsHandler struct {
	*BaseHandler
	service *settings.Service
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(service *settings.Service) *SettingsHandler {
	return &SettingsHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Get returns the current settings.
// GET /api/v1/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSettings(cfg))
}

// Save replaces the settings. Formulas are stored as given; the
// formula-check endpoint is the place to catch typos.
// PUT /api/v1/settings
func (h *SettingsHandler) Save(c *gin.Context) {
	var req dto.SaveSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	saved, err := h.service.Save(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSettings(saved))
}

// CheckFormula parses a candidate formula and previews it against a
// sample cost, so the UI can reject typos before saving.
// POST /api/v1/settings/formula-check
func (h *SettingsHandler) CheckFormula(c *gin.Context) {
	var req dto.FormulaCheckRequest
	if !h.BindJSON(c, &req) {
		return
	}

	expr, err := pricing.Parse(req.Formula)
	if err != nil {
		h.OK(c, dto.FormulaCheckResponse{Valid: false, Error: err.Error()})
		return
	}

	h.OK(c, dto.FormulaCheckResponse{
		Valid:  true,
		Sample: expr.Eval(100, 20),
	})
}
