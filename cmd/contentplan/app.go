package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/contentplan/backend/pkg/config"
	"github.com/contentplan/backend/pkg/email"
	"github.com/contentplan/backend/pkg/environment"
	"github.com/contentplan/backend/pkg/httpserver"
	"github.com/contentplan/backend/pkg/logger"
	"github.com/contentplan/backend/pkg/notify"
	"github.com/contentplan/backend/pkg/pg"
	"github.com/contentplan/backend/pkg/reconcile"
	"github.com/contentplan/backend/pkg/redis"
	"github.com/contentplan/backend/pkg/subscription"
	"github.com/contentplan/backend/pkg/subscription/pgstore"
	"github.com/contentplan/backend/pkg/subscription/sqlitestore"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"

	ledgerRedis  = "redis"
	ledgerMemory = "memory"
	ledgerNone   = "none"
)

type appConfig struct {
	Env          string `env:"APP_ENV"          envDefault:"development"`
	Service      string `env:"SERVICE_NAME"     envDefault:"contentplan"`
	StoreDriver  string `env:"STORE_DRIVER"     envDefault:"postgres"`
	LedgerDriver string `env:"RECONCILE_LEDGER" envDefault:"redis"`
	Log          logger.Config
}

// store is what every storage backend provides.
type store interface {
	subscription.ReadWriter
	subscription.Profiles
}

// app holds the process-wide collaborators shared by the commands.
type app struct {
	cfg    appConfig
	env    environment.Environment
	log    *slog.Logger
	store  store
	checks map[string]httpserver.CheckFunc

	closers []func()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newApp(ctx context.Context) (*app, error) {
	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	env := environment.Parse(cfg.Env)
	log := logger.New(
		logger.WithEnvironment(env, cfg.Service),
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(requestIDExtractor),
	)
	logger.SetAsDefault(log)

	a := &app{
		cfg:    cfg,
		env:    env,
		log:    log,
		checks: map[string]httpserver.CheckFunc{},
	}
	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.RequestID(id), true
	}
	return slog.Attr{}, false
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case driverPostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, cfg, a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		a.checks["postgres"] = pg.Healthcheck(pool)
		a.store = pgstore.New(pool)

	case driverSQLite:
		var cfg sqlitestore.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		db, err := sqlitestore.Open(ctx, cfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.checks["sqlite"] = sqlitestore.Healthcheck(db)
		a.store = sqlitestore.New(db)

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q: must be %q or %q", a.cfg.StoreDriver, driverPostgres, driverSQLite)
	}

	a.log.InfoContext(ctx, "subscription store ready", slog.String("driver", a.cfg.StoreDriver))
	return nil
}

func (a *app) ledger(ctx context.Context, cfg reconcile.Config) (reconcile.Ledger, error) {
	switch a.cfg.LedgerDriver {
	case ledgerRedis:
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rcfg, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.checks["redis"] = redis.Healthcheck(client)
		return reconcile.NewRedisLedger(client, "", cfg.LedgerTTL), nil
	case ledgerMemory:
		return reconcile.NewMemoryLedger(cfg.LedgerTTL), nil
	case ledgerNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown RECONCILE_LEDGER %q", a.cfg.LedgerDriver)
	}
}

func (a *app) dispatcher() (notify.Dispatcher, error) {
	var (
		mailCfg    email.Config
		breakerCfg notify.BreakerConfig
	)
	if err := errors.Join(config.Load(&mailCfg), config.Load(&breakerCfg)); err != nil {
		return nil, err
	}

	sender, err := email.NewSender(mailCfg, a.log)
	if err != nil {
		return nil, err
	}
	d := notify.NewEmailDispatcher(sender, notify.WithEmailLogger(a.log))
	return notify.WithCircuitBreaker(d, breakerCfg, a.log), nil
}

// reconciler builds the reconciler and, when reg is not nil, registers its metrics.
func (a *app) reconciler(ctx context.Context, cfg reconcile.Config, reg prometheus.Registerer) (*reconcile.Reconciler, error) {
	d, err := a.dispatcher()
	if err != nil {
		return nil, err
	}
	ledger, err := a.ledger(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []reconcile.Option{
		reconcile.WithWindow(cfg.Window),
		reconcile.WithConcurrency(cfg.Concurrency),
		reconcile.WithDispatchTimeout(cfg.DispatchTimeout),
		reconcile.WithQueryTimeout(cfg.QueryTimeout),
		reconcile.WithLogger(a.log),
		reconcile.WithTemplateParams(map[string]string{
			"app_url":     cfg.AppURL,
			"upgrade_url": cfg.UpgradeURL,
		}),
	}
	if ledger != nil {
		opts = append(opts, reconcile.WithLedger(ledger))
	}
	if reg != nil {
		opts = append(opts, reconcile.WithMetrics(reconcile.NewMetrics(reg)))
	}
	return reconcile.NewReconciler(a.store, a.store, d, opts...), nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
