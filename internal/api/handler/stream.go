package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sungminna/options-sandbox/internal/service/market"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler pushes candle windows over a websocket
type StreamHandler struct {
	marketService *market.Service
	interval      time.Duration
	upgrader      websocket.Upgrader
	logger        *slog.Logger
}

// NewStreamHandler creates a stream handler polling the series every interval
func NewStreamHandler(marketService *market.Service, interval time.Duration, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		marketService: marketService,
		interval:      interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Candles streams the window of one series whenever it changes
// GET /api/market/stream?ticker=BTC/USD&tf=1m&count=80
func (h *StreamHandler) Candles(c *gin.Context) {
	q, err := candlesQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Watch validates the query, so errors still get a plain HTTP response
	updates, err := h.marketService.Watch(ctx, q, h.interval)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	go h.readPump(conn, cancel)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(resp); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and cancels the stream once the peer
// goes away
func (h *StreamHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
