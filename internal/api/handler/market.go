package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/service/market"
)

// MarketHandler handles instrument prices and the simulated candle feed
type MarketHandler struct {
	marketService *market.Service
	logger        *slog.Logger
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(marketService *market.Service, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
		logger:        logger,
	}
}

// Symbols lists all instruments
// GET /api/market/symbols
func (h *MarketHandler) Symbols(c *gin.Context) {
	instruments, err := h.marketService.ListSymbols(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, instruments)
}

// Price moves the instrument's last price one random step and returns it
// GET /api/market/price?ticker=BTC/USD
func (h *MarketHandler) Price(c *gin.Context) {
	ticker := c.DefaultQuery("ticker", market.DefaultTicker)

	quote, err := h.marketService.WalkPrice(c.Request.Context(), ticker)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// Candles returns the current window of the simulated series
// GET /api/market/candles?ticker=BTC/USD&tf=1m&count=80
func (h *MarketHandler) Candles(c *gin.Context) {
	q, err := candlesQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.marketService.Candles(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Command applies an operator command to a simulated series
// POST /api/market/candles?cmd=set|toggleAuto|tick|nudge
func (h *MarketHandler) Command(c *gin.Context) {
	// an empty body selects the default series
	var req market.CommandRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req, ""); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}

	resp, err := h.marketService.Command(c.Request.Context(), c.Query("cmd"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("operator command",
		"cmd", c.Query("cmd"),
		"ticker", req.Ticker,
		"timeframe", req.Timeframe,
	)
	c.JSON(http.StatusOK, resp)
}

// History returns archived candles
// GET /api/market/candles/history?ticker=BTC/USD&tf=1m&from=...&to=...
func (h *MarketHandler) History(c *gin.Context) {
	q := market.HistoryQuery{
		Ticker:    c.Query("ticker"),
		Timeframe: model.Timeframe(c.Query("tf")),
	}

	var err error
	if q.From, err = parseTime(c.Query("from")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if q.To, err = parseTime(c.Query("to")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	candles, err := h.marketService.History(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"candles": candles})
}

func candlesQuery(c *gin.Context) (market.CandlesQuery, error) {
	q := market.CandlesQuery{
		Ticker:    c.Query("ticker"),
		Timeframe: model.Timeframe(c.Query("tf")),
	}

	if countStr := c.Query("count"); countStr != "" {
		count, err := strconv.Atoi(countStr)
		if err != nil {
			return q, apperr.InvalidInput("invalid count")
		}
		q.Count = count
	}
	return q, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("invalid range")
	}
	return t, nil
}
