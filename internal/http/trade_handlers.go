package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/niveshmitr/gateway/internal/engine"
	"github.com/niveshmitr/gateway/internal/metrics"
)

type tradeReq struct {
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
}

// Trade godoc
// @Summary Place a trade for the authenticated user
// @Tags trading
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param kind path string true "buy | sell | buy_mf | sell_mf"
// @Param payload body tradeReq true "trade"
// @Success 200 {object} engine.Result
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/trade/{kind} [post]
func (h *Handler) Trade(c *gin.Context) {
	var in tradeReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)
	kind := engine.TradeKind(c.Param("kind"))

	res, err := h.Engine.PlaceTrade(c.Request.Context(), kind, u.UID, in.Symbol, in.Quantity)
	if err != nil {
		h.engineError(c, "trade", err)
		return
	}
	metrics.EngineCalls.WithLabelValues("trade", "ok").Inc()
	c.JSON(http.StatusOK, res)
}

type fdReq struct {
	Amount         string `json:"amount"`
	DurationMonths string `json:"duration_months"`
}

// CreateFD godoc
// @Summary Open a fixed deposit for the authenticated user
// @Tags trading
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body fdReq true "deposit"
// @Success 200 {object} engine.Result
// @Router /api/fd [post]
func (h *Handler) CreateFD(c *gin.Context) {
	var in fdReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)

	res, err := h.Engine.CreateFixedDeposit(c.Request.Context(), u.UID, in.Amount, in.DurationMonths)
	if err != nil {
		h.engineError(c, "fd", err)
		return
	}
	metrics.EngineCalls.WithLabelValues("fd", "ok").Inc()
	c.JSON(http.StatusOK, res)
}

// Quote proxies a live price lookup.
func (h *Handler) Quote(c *gin.Context) {
	q, err := h.Engine.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.engineError(c, "quote", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// engineError maps client failures onto responses: the engine's own status
// and detail pass through, validation errors become 400, transport failures
// become 502.
func (h *Handler) engineError(c *gin.Context, op string, err error) {
	metrics.EngineCalls.WithLabelValues(op, "error").Inc()

	var apiErr *engine.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Detail})
		return
	}
	if errors.Is(err, engine.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "trading engine unavailable"})
}
