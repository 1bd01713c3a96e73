package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/freyja/internal"
	"github.com/dukerupert/freyja/internal/cache"
	"github.com/dukerupert/freyja/internal/events"
	"github.com/dukerupert/freyja/internal/handler/api"
	"github.com/dukerupert/freyja/internal/middleware"
	"github.com/dukerupert/freyja/internal/repository"
	"github.com/dukerupert/freyja/internal/router"
	"github.com/dukerupert/freyja/internal/routes"
	"github.com/dukerupert/freyja/internal/service"
	"github.com/dukerupert/freyja/internal/telemetry"
	"github.com/dukerupert/freyja/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// =========================================================================
	// Database
	// =========================================================================

	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	version, err := internal.MigrationVersion(sqlDB)
	if err != nil {
		return err
	}
	logger.Info("Database migrations completed successfully", "version", version)

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	db := repository.NewDatabase(pool, repository.TxOptions{
		Timeout:     cfg.Checkout.TxTimeout,
		LockTimeout: cfg.Checkout.LockTimeout,
	})

	// =========================================================================
	// Metrics
	// =========================================================================

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	businessMetrics := telemetry.NewBusinessMetrics(reg, "freyja")
	httpMetrics := middleware.NewMetrics(reg, "freyja")

	// =========================================================================
	// Optional infrastructure
	// =========================================================================

	var publisher events.Publisher = events.NopPublisher{}
	var natsConn *nats.Conn
	if cfg.NATSUrl != "" {
		natsConn, err = events.Connect(cfg.NATSUrl, "freyja", logger)
		if err != nil {
			return err
		}
		defer natsConn.Close()
		publisher = events.NewNATSPublisher(natsConn)
		logger.Info("NATS connected", "url", natsConn.ConnectedUrl())
	} else {
		logger.Info("NATS_URL not set, order events are disabled")
	}

	var stores service.StoreDirectory = service.NewStoreDirectory(db)
	if cfg.RedisUrl != "" {
		client, err := cache.NewClient(ctx, cfg.RedisUrl)
		if err != nil {
			return err
		}
		defer client.Close()
		stores = cache.NewStoreCache(client, stores, cfg.Cache.StoreTTL, logger)
		logger.Info("Store cache enabled", "ttl", cfg.Cache.StoreTTL)
	}

	// =========================================================================
	// Services
	// =========================================================================

	orderService, err := service.NewOrderService(service.OrderDeps{
		DB:        db,
		Inventory: service.NewInventoryLedger(db),
		Discounts: service.NewDiscountTracker(db),
		Identity: service.NewIdentityResolver(db, service.IdentityConfig{
			GuestEmailDomain: cfg.Checkout.GuestEmailDomain,
		}, businessMetrics, logger),
		Stores:    stores,
		Publisher: publisher,
		Metrics:   businessMetrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize order service: %w", err)
	}

	invoiceService := service.NewInvoiceService(db, service.NewDocumentAllocator(db, businessMetrics), stores, businessMetrics, logger)

	// =========================================================================
	// HTTP
	// =========================================================================

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithClientIP(),
		httpMetrics.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(cfg.Checkout.RequestTimeout),
		middleware.WithUserID,
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		CheckoutHandler: api.NewCheckoutHandler(orderService, logger),
		InvoiceHandler:  api.NewInvoiceHandler(invoiceService, logger),
	})

	// Ops endpoints skip the request pipeline.
	ops := router.New()
	routes.RegisterOpsRoutes(ops, routes.OpsDeps{
		Health:  healthHandler(pool),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	root := router.New()
	root.Mount("/api/", r)
	root.Mount("/", ops)
	logger.Debug("routes registered", "api", r.Routes(), "ops", ops.Routes())

	var h http.Handler = root
	if len(cfg.CORSAllowedOrigins) > 0 {
		h = router.CORS(cfg.CORSAllowedOrigins)(root)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// =========================================================================
	// Run
	// =========================================================================

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if cfg.Invoice.AutoMaterialize {
		w := worker.NewWorker(invoiceService, worker.Config{
			MaxConcurrency: cfg.Invoice.WorkerConcurrency,
		}, businessMetrics, logger)
		g.Go(func() error {
			if err := w.Start(gctx, natsConn); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if natsConn != nil {
			if err := natsConn.Drain(); err != nil {
				logger.Warn("NATS drain failed", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}

// healthHandler reports whether the database answers within a second.
func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
