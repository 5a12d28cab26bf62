package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contentplan/backend/pkg/logger"
	"github.com/contentplan/backend/pkg/notify"
	"github.com/contentplan/backend/pkg/subscription"
)

// Reconciler scans recently changed billing records and sends each user one
// notification per state transition.
//
// Failed dispatches are not retried. A failed record is only looked at again
// if a later window still covers its UpdatedAt, which with window equal to
// the run cadence means never.
type Reconciler struct {
	store      subscription.Store
	profiles   subscription.Profiles
	dispatcher notify.Dispatcher

	transitions     []Transition
	window          time.Duration
	concurrency     int
	dispatchTimeout time.Duration
	queryTimeout    time.Duration
	ledger          Ledger
	metrics         *Metrics
	logger          *slog.Logger
	params          map[string]string
	now             func() time.Time

	running atomic.Bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithWindow sets the window used when Run is given a non-positive one.
func WithWindow(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithConcurrency bounds the number of dispatches in flight.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithDispatchTimeout bounds every single dispatch.
func WithDispatchTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.dispatchTimeout = d
		}
	}
}

// WithQueryTimeout bounds every store and profile query.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

// WithLedger enables cross-run deduplication.
func WithLedger(l Ledger) Option {
	return func(r *Reconciler) { r.ledger = l }
}

// WithMetrics records run and dispatch counters.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTemplateParams adds static params, such as app_url, to every dispatch.
func WithTemplateParams(params map[string]string) Option {
	return func(r *Reconciler) {
		for k, v := range params {
			r.params[k] = v
		}
	}
}

// WithClock sets the clock used by Loop and the trigger endpoint.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler creates a Reconciler. Panics if a collaborator is nil.
func NewReconciler(store subscription.Store, profiles subscription.Profiles, dispatcher notify.Dispatcher, opts ...Option) *Reconciler {
	if store == nil {
		panic("reconcile: store is required")
	}
	if profiles == nil {
		panic("reconcile: profiles are required")
	}
	if dispatcher == nil {
		panic("reconcile: dispatcher is required")
	}

	r := &Reconciler{
		store:           store,
		profiles:        profiles,
		dispatcher:      dispatcher,
		transitions:     DefaultTransitions(),
		window:          DefaultWindow,
		concurrency:     DefaultConcurrency,
		dispatchTimeout: DefaultDispatchTimeout,
		queryTimeout:    DefaultQueryTimeout,
		logger:          slog.Default(),
		params:          map[string]string{},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("reconcile"))
	return r
}

// Now returns the current time from the configured clock.
func (r *Reconciler) Now() time.Time { return r.now() }

type candidate struct {
	set        int
	transition Transition
	record     subscription.Record
}

// Run reconciles records whose UpdatedAt falls in [now-window, now].
// A non-positive window falls back to the configured one.
//
// Both record sets are queried before anything is dispatched; a failed
// query aborts the run with ErrStoreUnavailable unless ctx was cancelled. Cancelling ctx stops new
// dispatches, lets in-flight ones finish within the dispatch timeout and
// returns the partial report with Cancelled set.
func (r *Reconciler) Run(ctx context.Context, now time.Time, window time.Duration) (Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Report{}, ErrRunInProgress
	}
	defer r.running.Store(false)

	if window <= 0 {
		window = r.window
	}
	started := time.Now()
	report := Report{
		WindowStart: now.Add(-window),
		WindowEnd:   now,
		Sets:        make([]SetReport, len(r.transitions)),
	}

	candidates, err := r.collect(ctx, &report)
	switch {
	case err != nil && ctx.Err() != nil:
		report.Cancelled = true
		report.Duration = time.Since(started)
		r.metrics.run(report, nil)
		r.logger.InfoContext(ctx, "reconciliation cancelled before dispatch", logger.Error(err))
		return report, nil
	case err != nil:
		report.Duration = time.Since(started)
		r.metrics.run(report, err)
		r.logger.ErrorContext(ctx, "reconciliation aborted", logger.Error(err))
		return report, err
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.process(ctx, c, &report, &mu)
			return nil
		})
	}
	_ = g.Wait()

	report.Cancelled = ctx.Err() != nil
	report.Duration = time.Since(started)
	r.metrics.run(report, nil)

	r.logger.InfoContext(ctx, "reconciliation finished",
		logger.Count("processed", report.Processed()),
		logger.Count("failures", report.Failures()),
		logger.Count("warnings", len(report.Warnings)),
		slog.Bool("cancelled", report.Cancelled),
		logger.Duration(report.Duration),
	)
	return report, nil
}

func (r *Reconciler) collect(ctx context.Context, report *Report) ([]candidate, error) {
	var out []candidate
	for i, t := range r.transitions {
		report.Sets[i].Transition = t.Name

		qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
		records, err := r.store.FindUpdatedSince(qctx, t.Status, t.Type, report.WindowStart)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Join(ErrStoreUnavailable, err)
		}

		seen := make(map[string]struct{}, len(records))
		for _, rec := range records {
			if rec.UpdatedAt.Before(report.WindowStart) || rec.UpdatedAt.After(report.WindowEnd) {
				continue
			}
			key := rec.UserID.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, candidate{set: i, transition: t, record: rec})
		}
		report.Sets[i].Found = len(seen)
	}
	return out, nil
}

func (r *Reconciler) process(ctx context.Context, c candidate, report *Report, mu *sync.Mutex) {
	if ctx.Err() != nil {
		return
	}
	rec := c.record
	name := c.transition.Name
	log := r.logger.With(logger.UserID(rec.UserID), logger.Transition(name))

	update := func(fn func(s *SetReport)) {
		mu.Lock()
		fn(&report.Sets[c.set])
		mu.Unlock()
	}
	warn := func(reason string) {
		mu.Lock()
		report.Sets[c.set].Skipped++
		report.Warnings = append(report.Warnings, Warning{UserID: rec.UserID, Transition: name, Reason: reason})
		mu.Unlock()
		r.metrics.dispatch(name, resultSkipped)
	}

	pctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	profile, err := r.profiles.FindProfile(pctx, rec.UserID)
	cancel()
	switch {
	case errors.Is(err, subscription.ErrProfileNotFound), err == nil && (profile == nil || profile.Email == ""):
		log.WarnContext(ctx, "skipping notification", logger.Error(ErrMissingRecipient))
		warn(ErrMissingRecipient.Error())
		return
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		log.WarnContext(ctx, "recipient lookup failed", logger.Error(err))
		warn("recipient lookup failed: " + err.Error())
		return
	}

	var key string
	if r.ledger != nil {
		key = LedgerKey(rec.UserID, name, rec.UpdatedAt)
		fresh, err := r.ledger.Reserve(ctx, key)
		switch {
		case err != nil:
			log.WarnContext(ctx, "notified ledger unavailable, dispatching anyway", logger.Error(err))
			key = ""
		case !fresh:
			update(func(s *SetReport) { s.Duplicates++ })
			r.metrics.dispatch(name, resultDuplicate)
			return
		}
	}

	if ctx.Err() != nil {
		r.release(key)
		return
	}

	update(func(s *SetReport) { s.Attempted++ })

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.dispatchTimeout)
	err = r.dispatcher.Send(dctx, c.transition.Template, profile.Email, r.templateParams(rec, profile))
	cancel()

	if err != nil {
		update(func(s *SetReport) { s.Failed++ })
		r.metrics.dispatch(name, resultFailed)
		r.release(key)
		log.ErrorContext(ctx, "notification dispatch failed", logger.Template(string(c.transition.Template)), logger.Error(err))
		return
	}

	update(func(s *SetReport) { s.Succeeded++ })
	r.metrics.dispatch(name, resultSent)
	log.InfoContext(ctx, "notification dispatched", logger.Template(string(c.transition.Template)))
}

func (r *Reconciler) release(key string) {
	if r.ledger == nil || key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.queryTimeout)
	defer cancel()
	if err := r.ledger.Release(ctx, key); err != nil {
		r.logger.Warn("failed to release ledger key", slog.String("key", key), logger.Error(err))
	}
}

func (r *Reconciler) templateParams(rec subscription.Record, p *subscription.Profile) map[string]string {
	params := make(map[string]string, len(r.params)+3)
	for k, v := range r.params {
		params[k] = v
	}
	params["user_id"] = rec.UserID.String()
	params["subscription_type"] = string(rec.Type)
	if p.Name != "" {
		params["name"] = p.Name
	}
	return params
}
