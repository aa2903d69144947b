package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/commerce/internal/application/inventory"
	marginapp "github.com/erp/commerce/internal/application/margin"
	tradeapp "github.com/erp/commerce/internal/application/trade"
	"github.com/erp/commerce/internal/domain/report"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/infrastructure/cache"
	"github.com/erp/commerce/internal/infrastructure/config"
	"github.com/erp/commerce/internal/infrastructure/event"
	"github.com/erp/commerce/internal/infrastructure/gateway"
	"github.com/erp/commerce/internal/infrastructure/logger"
	"github.com/erp/commerce/internal/infrastructure/persistence"
	"github.com/erp/commerce/internal/infrastructure/scheduler"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var (
		configPath string
		days       int
		quiet      bool
		daemon     bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: ./config.toml)")
	flag.IntVar(&days, "days", 0, "Also sync payments and refresh margins of orders created in the last N days")
	flag.BoolVar(&quiet, "quiet", false, "Do not print report lines")
	flag.BoolVar(&daemon, "daemon", false, "Stay running and reconcile daily at the configured scheduler time")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, options{days: days, quiet: quiet, daemon: daemon}); err != nil {
		log.Error("Reconciliation failed", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

type options struct {
	days   int
	quiet  bool
	daemon bool
}

func run(ctx context.Context, cfg *config.Config, base *zap.Logger, opts options) (err error) {
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, version, base)
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = errors.Join(err, tel.Shutdown(shutdownCtx))
	}()
	log := telemetry.Bridge(base, tel.Logs, telemetry.TracerName)

	log.Info("Starting reconciliation",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	dbMetrics, err := telemetry.NewDBMetrics(tel.Meter.Meter(telemetry.TracerName), telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		return fmt.Errorf("failed to create database metrics: %w", err)
	}
	defer dbMetrics.Stop()
	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log)

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))),
		persistence.WithPlugin(tracing.Register),
		persistence.WithPlugin(dbMetrics.Register),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("Error closing database", zap.Error(cerr))
		}
	}()
	if sqlDB, err := db.DB.DB(); err == nil {
		dbMetrics.StartPoolStatsCollection(ctx, sqlDB)
	}

	marginCache, err := cache.NewMarginCache(cfg.Redis, cfg.Margin.CacheTTL, true, logger.Named(log, "cache"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := marginCache.Close(); cerr != nil {
			log.Warn("Error closing margin cache", zap.Error(cerr))
		}
	}()

	// Repositories and the shared unit of work
	units := persistence.NewGormStockUnitRepository(db.DB)
	sales := persistence.NewGormSaleRepository(db.DB)
	customers := persistence.NewGormCustomerRepository(db.DB)
	persister := shared.NewPersistenceHelper(persistence.NewGormUnitOfWork(db.DB))

	// Margins: cost changes queue units, the invalidator recomputes their orders
	calculator := report.NewMarginCalculatorFactory(nil).Create(cfg.Margin.Gross)
	invalidator := marginapp.NewSyncInvalidator(marginapp.NewOrderMarginInvalidator(
		marginapp.NewRepositoryInvalidationStrategy(sales, calculator, marginCache, logger.Named(log, "margin"), tel.Metrics),
	))

	bus := event.NewInMemoryEventBus(logger.Named(log, "events"))
	if on, err := cfg.Features.IsEnabled(config.FeatureMarginInvalidation); err != nil {
		return err
	} else if on {
		bus.Subscribe(marginapp.NewStockUnitCostChangedHandler(invalidator, logger.Named(log, "margin")))
	}
	if err := bus.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = bus.Stop(context.Background())
	}()

	stockUnits := inventoryapp.NewStockUnitService(units, nil, logger.Named(log, "stock_unit"), tel.Metrics)
	stockUnits.SetEventPublisher(bus)

	reporter := logger.NewLineReporter(os.Stdout, log)
	pass := func(ctx context.Context) error {
		return reconcile(ctx, cfg, log, opts, reporter, stockUnits, sales, customers, persister, calculator, marginCache, tel.Metrics, bus, invalidator)
	}
	if !opts.daemon {
		return pass(ctx)
	}

	if opts.days == 0 {
		opts.days = cfg.Scheduler.Days
	}
	trigger, err := scheduler.NewDailyTrigger(scheduler.DailyTriggerConfig{
		Hour:          cfg.Scheduler.Hour,
		Minute:        cfg.Scheduler.Minute,
		CheckInterval: cfg.Scheduler.CheckInterval,
	}, pass, logger.Named(log, "scheduler"))
	if err != nil {
		return err
	}
	if err := trigger.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return trigger.Stop(stopCtx)
}

// reconcile runs one pass: stock units, then recent orders, then the queued
// margin invalidations
func reconcile(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	opts options,
	reporter *logger.LineReporter,
	stockUnits *inventoryapp.StockUnitService,
	sales *persistence.GormSaleRepository,
	customers *persistence.GormCustomerRepository,
	persister *shared.PersistenceHelper,
	calculator *report.MarginCalculator,
	marginCache cache.MarginCache,
	metrics *telemetry.ReconciliationMetrics,
	bus *event.InMemoryEventBus,
	invalidator *marginapp.SyncInvalidator,
) error {
	ctx, log = logger.WithRunID(ctx, log, uuid.NewString())
	log.Info("Reconciliation pass started", zap.Int("days", opts.days))

	summary, err := stockUnits.ReconcileAll(ctx, func(r inventoryapp.ReconcileResult) {
		if opts.quiet {
			return
		}
		state := string(r.State)
		if r.Err != nil {
			state = "FAILED"
		}
		_ = reporter.Report(fmt.Sprintf("Stock unit #%s", r.Unit.ID), state)
	})
	if err != nil {
		return err
	}
	log.Info("Stock units reconciled",
		zap.Int("units", summary.Units),
		zap.Int("changed", summary.Changed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)

	var errs []error
	if opts.days > 0 {
		errs = append(errs, reconcileOrders(ctx, cfg, log, opts.days, opts.quiet, reporter, sales, customers, persister, calculator, marginCache, metrics, bus))
	}

	if pending := invalidator.Pending(); len(pending) > 0 {
		log.Info("Invalidating order margins", zap.Int("stock_units", len(pending)))
	}
	errs = append(errs, invalidator.Invalidate(ctx))
	return errors.Join(errs...)
}

// reconcileOrders polls the gateways for recent orders and refreshes their margins
func reconcileOrders(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	days int,
	quiet bool,
	reporter *logger.LineReporter,
	sales *persistence.GormSaleRepository,
	customers *persistence.GormCustomerRepository,
	persister *shared.PersistenceHelper,
	calculator *report.MarginCalculator,
	marginCache cache.MarginCache,
	metrics *telemetry.ReconciliationMetrics,
	bus *event.InMemoryEventBus,
) error {
	configs := make([]gateway.Config, 0, len(cfg.Gateways))
	for _, g := range cfg.Gateways {
		configs = append(configs, gateway.ConfigFrom(g))
	}
	registry, err := gateway.NewRegistry(configs, gateway.Dependencies{
		Customers: customers,
		Persister: persister,
		Logger:    logger.Named(log, "gateway"),
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	payments := tradeapp.NewPaymentService(sales, customers, registry, persister, cfg.Features, logger.Named(log, "payment"), metrics)
	payments.SetEventPublisher(bus)
	margins := marginapp.NewReader(sales, calculator, marginCache, cfg.Margin.CacheTTL, logger.Named(log, "margin"))

	now := time.Now()
	orders, err := sales.FindOrdersByPeriod(ctx, shared.DateRange{From: now.AddDate(0, 0, -days), To: now})
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	var errs []error
	for _, order := range orders {
		ctx, olog := logger.WithSaleNumber(ctx, log, order.Number)
		if _, err := payments.SyncSale(ctx, order.ID); err != nil {
			olog.Warn("Payment sync failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("order %s: %w", order.Number, err))
			continue
		}
		m, err := margins.SaleMargin(ctx, order.ID)
		if err != nil {
			olog.Warn("Margin refresh failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("order %s: %w", order.Number, err))
			continue
		}
		if !quiet && m != nil {
			_ = reporter.Report(fmt.Sprintf("Order %s margin", order.Number), m.Percent.StringFixed(2)+"%")
		}
	}
	log.Info("Orders reconciled", zap.Int("orders", len(orders)), zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}
