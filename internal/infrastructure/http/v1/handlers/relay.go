package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skusync/internal/infrastructure/http/v1/dto"
	"skusync/internal/infrastructure/teamleader"
)

// RelayHandler proxies Teamleader OAuth and API calls so the browser
// never sees the client secret or tokens.
type RelayHandler struct {
	*BaseHandler
	client *teamleader.Client
}

// NewRelayHandler creates a new relay handler.
func NewRelayHandler(client *teamleader.Client) *RelayHandler {
	return &RelayHandler{
		BaseHandler: NewBaseHandler(),
		client:      client,
	}
}

// Relay forwards a token or API request upstream and returns the raw
// upstream JSON. Upstream failures come back as an error envelope in
// a 200 response so the caller can always read the body.
// POST /api/v1/teamleader/relay
func (h *RelayHandler) Relay(c *gin.Context) {
	var req teamleader.RelayRequest
	if !h.BindJSON(c, &req) {
		return
	}

	body, err := h.client.Relay(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// Status reports whether the integration holds usable tokens.
// GET /api/v1/teamleader/status
func (h *RelayHandler) Status(c *gin.Context) {
	connected, err := h.client.Connected(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ConnectionStatusResponse{Connected: connected})
}
