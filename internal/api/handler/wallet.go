package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sungminna/options-sandbox/internal/service/wallet"
)

// WalletHandler handles deposits and withdrawals
type WalletHandler struct {
	ledger *wallet.Ledger
	logger *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(ledger *wallet.Ledger, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		ledger: ledger,
		logger: logger,
	}
}

// Topup credits the caller's balance
// POST /api/wallet/topup
func (h *WalletHandler) Topup(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req wallet.FundsRequest
	if err := bindJSON(c, &req, "invalid method"); err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.ledger.Deposit(c.Request.Context(), uid, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Withdraw debits the caller's balance
// POST /api/wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req wallet.FundsRequest
	if err := bindJSON(c, &req, "invalid method"); err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.ledger.Withdraw(c.Request.Context(), uid, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
