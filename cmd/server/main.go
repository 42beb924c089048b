package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/api/router"
	"github.com/sungminna/options-sandbox/internal/config"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
	chrepo "github.com/sungminna/options-sandbox/internal/infrastructure/clickhouse"
	"github.com/sungminna/options-sandbox/internal/infrastructure/memory"
	pgrepo "github.com/sungminna/options-sandbox/internal/infrastructure/postgres"
	"github.com/sungminna/options-sandbox/internal/logging"
	"github.com/sungminna/options-sandbox/internal/service/admin"
	"github.com/sungminna/options-sandbox/internal/service/auth"
	"github.com/sungminna/options-sandbox/internal/service/market"
	"github.com/sungminna/options-sandbox/internal/service/scheduler"
	"github.com/sungminna/options-sandbox/internal/service/settlement"
	"github.com/sungminna/options-sandbox/internal/service/simulation"
	"github.com/sungminna/options-sandbox/internal/service/trading"
	"github.com/sungminna/options-sandbox/internal/service/wallet"
	"github.com/sungminna/options-sandbox/pkg/database/clickhouse"
	"github.com/sungminna/options-sandbox/pkg/database/postgres"
	jwtpkg "github.com/sungminna/options-sandbox/pkg/jwt"
	"github.com/sungminna/options-sandbox/pkg/ratelimit"
)

// stores bundles the repositories of the selected driver
type stores struct {
	users       repository.UserRepository
	instruments repository.InstrumentRepository
	trades      repository.TradeRepository
	wallet      repository.WalletRepository
	ledger      repository.LedgerStore
	ping        func(context.Context) error
	close       func()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	jwtManager := jwtpkg.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	authService := auth.NewService(st.users, jwtManager, logger)

	if err := seed(ctx, cfg, st, authService); err != nil {
		return err
	}

	// Simulation and the candle archive
	seedValue := cfg.Simulation.Seed
	if seedValue == 0 {
		seedValue = uint64(time.Now().UnixNano())
	}
	src := simulation.Locked(simulation.NewSource(seedValue))

	healthChecks := map[string]func(context.Context) error{}
	if st.ping != nil {
		healthChecks["postgres"] = st.ping
	}

	var (
		simOpts  []simulation.Option
		archive  repository.CandleArchive
		archiver *scheduler.CandleArchiver
	)
	if cfg.ClickHouse.Enabled {
		conn, err := clickhouse.NewConn(ctx, &clickhouse.Config{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Debug:    cfg.ClickHouse.Debug,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to clickhouse: %w", err)
		}
		defer func() {
			if err := clickhouse.Close(conn); err != nil {
				logger.Warn("failed to close clickhouse", "error", err)
			}
		}()
		if err := clickhouse.Migrate(ctx, conn); err != nil {
			return fmt.Errorf("failed to migrate clickhouse: %w", err)
		}

		healthChecks["clickhouse"] = conn.Ping
		archive = chrepo.NewCandleArchive(conn)
		archiver = scheduler.NewCandleArchiver(archive, cfg.Archive.Interval, cfg.Archive.BufferSize, logger)
		simOpts = append(simOpts, simulation.WithRecorder(archiver))
	}
	sim := simulation.NewStore(src, simOpts...)

	// Services
	ledger := wallet.NewLedger(st.ledger, logger)
	settler := settlement.NewEngine(st.trades, st.instruments, ledger, logger)
	tradingEngine := trading.NewEngine(st.trades, st.instruments, ledger, settler, logger)
	marketService := market.NewService(st.instruments, sim, src, logger)
	if archive != nil {
		marketService.WithArchive(archive)
	}
	adminService := admin.NewService(st.users, st.trades, st.wallet)

	// Background workers
	if archiver != nil {
		archiver.Start(ctx)
	}
	var sweeper *settlement.Sweeper
	if cfg.Settlement.SweepInterval > 0 {
		sweeper = settlement.NewSweeper(settler, cfg.Settlement.SweepInterval, logger)
		sweeper.Start(ctx)
	}
	priceLimiter := ratelimit.NewKeyedRateLimiter(cfg.Market.PriceRateLimit, cfg.Market.PriceBurst, 10*time.Minute)
	go priceLimiter.RunCleanup(ctx, time.Minute)

	// Setup router
	gin.SetMode(cfg.Server.Mode)
	r := router.Setup(&router.Config{
		JWTManager:     jwtManager,
		CookieName:     cfg.Auth.CookieName,
		StreamInterval: cfg.Market.StreamInterval,
		PriceLimiter:   priceLimiter,
		Logger:         logger,
		HealthChecks:   healthChecks,
		Users:          st.users,
		AuthService:    authService,
		MarketService:  marketService,
		TradingEngine:  tradingEngine,
		Ledger:         ledger,
		AdminService:   adminService,
	})

	// Create server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "store", cfg.Store.Driver, "archive", archive != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if archiver != nil {
		archiver.Stop(shutdownCtx)
	}

	logger.Info("server exited")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, &postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
			Logger:          logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				postgres.Close(pool)
				return nil, fmt.Errorf("failed to migrate postgres: %w", err)
			}
		}
		logger.Info("using postgres store")
		return &stores{
			users:       pgrepo.NewUserRepository(pool),
			instruments: pgrepo.NewInstrumentRepository(pool),
			trades:      pgrepo.NewTradeRepository(pool),
			wallet:      pgrepo.NewWalletRepository(pool),
			ledger:      pgrepo.NewLedgerStore(pool),
			ping:        pool.Ping,
			close:       func() { postgres.Close(pool) },
		}, nil
	default:
		store := memory.NewStore()
		logger.Warn("using in-memory store, state is lost on restart")
		return &stores{
			users:       store.Users(),
			instruments: store.Instruments(),
			trades:      store.Trades(),
			wallet:      store.Wallet(),
			ledger:      store,
			close:       func() {},
		}, nil
	}
}

// seed loads the instrument set and the operator and demo accounts
func seed(ctx context.Context, cfg *config.Config, st *stores, authService *auth.Service) error {
	if cfg.Seed.Instruments {
		for _, in := range model.DefaultInstruments() {
			if err := st.instruments.Ensure(ctx, in); err != nil {
				return fmt.Errorf("failed to seed instrument %s: %w", in.Ticker, err)
			}
		}
	}

	if cfg.Seed.AdminEmail != "" {
		if _, err := authService.EnsureUser(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, model.RoleAdmin, decimal.Zero); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
	}
	if cfg.Seed.DemoEmail != "" {
		balance := decimal.NewFromFloat(cfg.Seed.DemoBalance)
		if _, err := authService.EnsureUser(ctx, cfg.Seed.DemoEmail, cfg.Seed.DemoPassword, model.RoleUser, balance); err != nil {
			return fmt.Errorf("failed to seed demo user: %w", err)
		}
	}
	return nil
}
