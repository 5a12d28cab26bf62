package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/contentplan/backend/handler"
	"github.com/contentplan/backend/pkg/config"
	"github.com/contentplan/backend/pkg/environment"
	"github.com/contentplan/backend/pkg/httpserver"
	"github.com/contentplan/backend/pkg/logger"
	"github.com/contentplan/backend/pkg/reconcile"
	"github.com/contentplan/backend/pkg/schedule"
	"github.com/contentplan/backend/pkg/subscription"
)

// userIDHeader carries the user authenticated by the gateway in front of
// this service.
const userIDHeader = "X-Authenticated-User"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run scheduled reconciliation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var (
		httpCfg      httpserver.Config
		reconcileCfg reconcile.Config
	)
	if err := errors.Join(config.Load(&httpCfg), config.Load(&reconcileCfg)); err != nil {
		return err
	}

	reg := newRegistry()
	rec, err := a.reconciler(ctx, reconcileCfg, reg)
	if err != nil {
		return err
	}

	syncer, webhooks, err := a.syncer()
	if err != nil {
		return err
	}
	gate := subscription.NewGate(a.store, a.store, subscription.WithGateLogger(a.log))

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		environment.Middleware(a.env),
	)

	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(a.log, 5*time.Second, a.checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	if reconcileCfg.CronSecret != "" {
		// Handle, not Get: the trigger answers 405 itself, after authentication.
		r.Handle("/cron/reconcile", reconcile.TriggerHandler(rec, reconcileCfg.CronSecret, reconcileCfg.Window))
	} else {
		a.log.WarnContext(ctx, "CRON_SECRET not set, reconciliation trigger endpoint disabled")
	}

	if webhooks {
		r.Post("/webhooks/paddle", subscription.WebhookHandler(syncer, "Paddle-Signature", a.log))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", sessionHandler(syncer, a.log))
		r.With(gate.Middleware(userFromHeader, reconcileCfg.UpgradeURL)).
			Get("/entitlement", entitlementHandler(a.log))
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.New(httpCfg, httpserver.WithLogger(a.log)).Run(ctx, r)
	})

	if reconcileCfg.Schedule != "" && reconcileCfg.Schedule != "off" {
		sched, err := schedule.Parse(reconcileCfg.Schedule)
		if err != nil {
			return err
		}
		a.log.InfoContext(ctx, "scheduled reconciliation enabled", slog.String("schedule", sched.String()))
		g.Go(func() error { return rec.Loop(ctx, sched) })
	}

	return g.Wait()
}

// syncer builds the billing syncer. The bool reports whether Paddle webhooks
// are configured; production refuses to start without them.
func (a *app) syncer() (*subscription.Syncer, bool, error) {
	opts := []subscription.SyncerOption{subscription.WithSyncerLogger(a.log)}

	paddleCfg, err := config.Parse[subscription.PaddleConfig]()
	switch {
	case err == nil:
		provider, err := subscription.NewPaddleProvider(paddleCfg)
		if err != nil {
			return nil, false, err
		}
		opts = append(opts, subscription.WithWebhookParser(provider))
	case a.env.IsProduction():
		return nil, false, err
	default:
		a.log.Warn("PADDLE_WEBHOOK_SECRET not set, billing webhooks disabled")
	}

	return subscription.NewSyncer(a.store, opts...), len(opts) > 1, nil
}

func userFromHeader(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get(userIDHeader))
	return id, err == nil && id != uuid.Nil
}

type entitlementResponse struct {
	Status        subscription.Status `json:"status"`
	IsPro         bool                `json:"is_pro"`
	IsTrialing    bool                `json:"is_trialing"`
	IsExpired     bool                `json:"is_expired"`
	TrialDaysLeft int                 `json:"trial_days_left"`
}

func toEntitlementResponse(e subscription.Entitlement) entitlementResponse {
	return entitlementResponse{
		Status:        e.Status,
		IsPro:         e.IsPro,
		IsTrialing:    e.IsTrialing,
		IsExpired:     e.IsExpired,
		TrialDaysLeft: e.TrialDaysLeft,
	}
}

// sessionHandler is called by the gateway after each successful sign-in and
// makes sure the user has a subscription record.
func sessionHandler(syncer *subscription.Syncer, log *slog.Logger) http.HandlerFunc {
	resolver := subscription.NewResolver()
	h := func(ctx handler.Context, _ struct{}) handler.Response {
		id, ok := userFromHeader(ctx.Request())
		if !ok {
			return handler.JSONError(handler.ErrUnauthorized)
		}
		rec, err := syncer.EnsureTrial(ctx, id)
		if err != nil {
			log.ErrorContext(ctx, "failed to ensure trial", logger.UserID(id), logger.Error(err))
			return handler.JSONError(handler.ErrInternalServer)
		}
		return handler.JSON(toEntitlementResponse(resolver.Resolve(subscription.FromRecord(*rec))))
	}
	return handler.Wrap(h, handler.WithErrorHandler[handler.Context, struct{}](handler.NewErrorHandler(log)))
}

func entitlementHandler(log *slog.Logger) http.HandlerFunc {
	h := func(ctx handler.Context, _ struct{}) handler.Response {
		e, ok := subscription.EntitlementFromContext(ctx)
		if !ok {
			log.ErrorContext(ctx, "entitlement missing from gated request", logger.Component("api"))
			return handler.JSONError(handler.ErrInternalServer)
		}
		return handler.JSON(toEntitlementResponse(e))
	}
	return handler.Wrap(h, handler.WithErrorHandler[handler.Context, struct{}](handler.NewErrorHandler(log)))
}
