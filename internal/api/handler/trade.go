package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sungminna/options-sandbox/internal/service/trading"
)

// TradeHandler handles trade placement and history
type TradeHandler struct {
	tradingEngine *trading.Engine
	logger        *slog.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(tradingEngine *trading.Engine, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		tradingEngine: tradingEngine,
		logger:        logger,
	}
}

// List settles the caller's expired trades and returns the latest ones
// GET /api/trades/list
func (h *TradeHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	trades, err := h.tradingEngine.ListTrades(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trades)
}

// Place opens a trade
// POST /api/trades/place
func (h *TradeHandler) Place(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req trading.PlaceTradeRequest
	if err := bindJSON(c, &req, ""); err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.tradingEngine.PlaceTrade(c.Request.Context(), uid, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
