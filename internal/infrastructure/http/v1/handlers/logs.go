package handlers

import (
	"github.com/gin-gonic/gin"

	"skusync/internal/domain/activity"
	"skusync/internal/infrastructure/http/v1/dto"
)

// LogHandler exposes the activity log.
type LogHandler struct {
	*BaseHandler
	service *activity.Service
}

// NewLogHandler creates a new log handler.
func NewLogHandler(service *activity.Service) *LogHandler {
	return &LogHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Recent returns the most recent entries, newest first.
// GET /api/v1/logs?limit=50
func (h *LogHandler) Recent(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.service.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromLogEntries(entries))
}
