package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sungminna/options-sandbox/internal/api/handler"
	"github.com/sungminna/options-sandbox/internal/api/middleware"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
	"github.com/sungminna/options-sandbox/internal/service/admin"
	"github.com/sungminna/options-sandbox/internal/service/auth"
	"github.com/sungminna/options-sandbox/internal/service/market"
	"github.com/sungminna/options-sandbox/internal/service/trading"
	"github.com/sungminna/options-sandbox/internal/service/wallet"
	jwtpkg "github.com/sungminna/options-sandbox/pkg/jwt"
	"github.com/sungminna/options-sandbox/pkg/ratelimit"
)

// Config holds router configuration
type Config struct {
	JWTManager     *jwtpkg.Manager
	CookieName     string
	StreamInterval time.Duration
	PriceLimiter   *ratelimit.KeyedRateLimiter
	Logger         *slog.Logger
	// HealthChecks are probed by /health, keyed by dependency name
	HealthChecks map[string]func(context.Context) error

	Users         repository.UserRepository
	AuthService   *auth.Service
	MarketService *market.Service
	TradingEngine *trading.Engine
	Ledger        *wallet.Ledger
	AdminService  *admin.Service
}

// Setup sets up the Gin router
func Setup(cfg *Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(cfg.Logger))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check
	r.GET("/health", health(cfg.HealthChecks))

	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	marketHandler := handler.NewMarketHandler(cfg.MarketService, cfg.Logger)
	streamHandler := handler.NewStreamHandler(cfg.MarketService, cfg.StreamInterval, cfg.Logger)
	tradeHandler := handler.NewTradeHandler(cfg.TradingEngine, cfg.Logger)
	walletHandler := handler.NewWalletHandler(cfg.Ledger, cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.AdminService, cfg.Logger)

	authRequired := middleware.AuthMiddleware(cfg.JWTManager, cfg.CookieName)
	adminOnly := middleware.RequireAdmin(cfg.Users)

	// Public API endpoints (no authentication required)
	publicAPI := r.Group("/api")
	{
		publicAPI.POST("/auth/login", authHandler.Login)

		publicAPI.GET("/market/symbols", marketHandler.Symbols)
		if cfg.PriceLimiter != nil {
			publicAPI.GET("/market/price", middleware.RateLimit(cfg.PriceLimiter), marketHandler.Price)
		} else {
			publicAPI.GET("/market/price", marketHandler.Price)
		}
		publicAPI.GET("/market/candles", marketHandler.Candles)
		publicAPI.GET("/market/stream", streamHandler.Candles)
	}

	// Protected API endpoints (authentication required)
	protectedAPI := r.Group("/api")
	protectedAPI.Use(authRequired)
	{
		protectedAPI.GET("/me", authHandler.Me)

		protectedAPI.GET("/trades/list", tradeHandler.List)
		protectedAPI.POST("/trades/place", tradeHandler.Place)

		protectedAPI.POST("/wallet/topup", walletHandler.Topup)
		protectedAPI.POST("/wallet/withdraw", walletHandler.Withdraw)
	}

	// Operator endpoints
	adminAPI := r.Group("/api")
	adminAPI.Use(authRequired, adminOnly)
	{
		adminAPI.POST("/market/candles", marketHandler.Command)
		adminAPI.GET("/market/candles/history", marketHandler.History)

		adminAPI.GET("/admin/users", adminHandler.Users)
		adminAPI.GET("/admin/ledger", adminHandler.Ledger)
	}

	return r
}

func health(checks map[string]func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}

		if status != http.StatusOK {
			c.JSON(status, gin.H{"status": "degraded", "dependencies": deps})
			return
		}
		c.JSON(status, gin.H{"status": "ok", "dependencies": deps})
	}
}
