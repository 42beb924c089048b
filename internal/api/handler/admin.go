package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sungminna/options-sandbox/internal/service/admin"
)

// AdminHandler serves the operator's read-only account views
type AdminHandler struct {
	adminService *admin.Service
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *admin.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// Users lists every account with its latest wallet transactions
// GET /api/admin/users
func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// Ledger returns accounts plus the latest wallet transactions and trades
// GET /api/admin/ledger
func (h *AdminHandler) Ledger(c *gin.Context) {
	ledger, err := h.adminService.GetLedger(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ledger)
}
