package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/serviq/internal/adapter/fiscal"
	"github.com/neomorfeo/serviq/internal/adapter/fsm"
	handler "github.com/neomorfeo/serviq/internal/adapter/http"
	"github.com/neomorfeo/serviq/internal/adapter/metrics"
	"github.com/neomorfeo/serviq/internal/adapter/otel"
	"github.com/neomorfeo/serviq/internal/adapter/redis"
	"github.com/neomorfeo/serviq/internal/adapter/river"
	"github.com/neomorfeo/serviq/internal/adapter/sqlite"
	"github.com/neomorfeo/serviq/internal/app"
	"github.com/neomorfeo/serviq/internal/config"
	"github.com/neomorfeo/serviq/internal/domain"
	"github.com/neomorfeo/serviq/internal/tenancy"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("serviq exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	otelCfg := otel.ConfigFromEnv()
	if otelCfg.Enabled() {
		providers, err := otel.Setup(ctx, otelCfg)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := providers.Shutdown(sctx); err != nil {
				logger.Error("otel shutdown", "error", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Catalog ---
	catalogDB, err := otel.OpenDB(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer catalogDB.Close()

	catalog, err := sqlite.NewFromDB(catalogDB)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	repo := otel.NewTracingRepository(catalog)

	// --- Tenant stores ---
	if err := os.MkdirAll(cfg.TenantDataDir, 0o750); err != nil {
		return fmt.Errorf("tenant data dir: %w", err)
	}
	pool := tenancy.NewPool(otel.OpenTenantStore, tenancy.WithPoolObserver(m))
	defer pool.Close()

	var (
		directory domain.TenantDirectory = repo
		cache     domain.TenantCache
	)
	if cfg.RedisURL != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		d := redis.NewDirectory(rdb, repo, cfg.ResolverCacheTTL)
		directory, cache = d, d
		logger.Info("resolver cache enabled", "ttl", cfg.ResolverCacheTTL)
	}

	resolver := tenancy.NewResolver(directory, cfg.BaseDomain, tenancy.WithResolveObserver(m))
	sw := tenancy.NewSwitch(resolver, tenancy.NewBinder(pool))

	// --- Events ---
	var submitter river.InvoiceSubmitter
	if cfg.FiscalAPIURL != "" {
		submitter = fiscal.New(fiscal.Config{
			BaseURL: cfg.FiscalAPIURL,
			APIKey:  cfg.FiscalAPIKey,
			Timeout: cfg.FiscalTimeout,
		})
	}
	riverClient, err := river.Setup(ctx, catalogDB, river.Options{Submitter: submitter, Logger: logger})
	if err != nil {
		return err
	}
	publisher := otel.NewTracingPublisher(metrics.NewPublisher(river.NewPublisher(riverClient), m))

	// --- Application ---
	tenants := app.NewTenantService(app.TenantConfig{
		Repo:        repo,
		Publisher:   publisher,
		Resolver:    fsm.New(domain.TenantTable),
		Provisioner: pool,
		Cache:       cache,
		DataDir:     cfg.TenantDataDir,
	}, app.WithLogger(logger))

	clients := sqlite.NewClientRepository()
	services := handler.Services{
		Clients:   app.NewClientService(clients, publisher, fsm.New(domain.ClientTable), app.WithLogger(logger)),
		Contracts: app.NewContractService(sqlite.NewContractRepository(), clients, publisher, fsm.New(domain.ContractTable), app.WithLogger(logger)),
		Invoices:  app.NewInvoiceService(sqlite.NewInvoiceRepository(), clients, publisher, app.WithLogger(logger)),
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(otelCfg.ServiceName, otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("serviq", otelCfg.ServiceVersion))
	handler.RegisterTenants(api, tenants)
	handler.RegisterScoped(api, sw, services)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Run ---
	// River is stopped explicitly below; cancelling its start context would
	// hard-stop it before in-flight jobs finish.
	if err := riverClient.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serviq listening", "port", cfg.Port, "base_domain", cfg.BaseDomain, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(
			srv.Shutdown(sctx),
			riverClient.Stop(sctx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
