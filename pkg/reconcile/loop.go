package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/contentplan/backend/pkg/schedule"
)

// Loop runs r on every trigger of s until ctx is done. Each run's window
// spans from the previous run to now, so consecutive windows tile time
// without overlap. The first window is one period ending at the first
// trigger, which is where a previous process on the same schedule left off.
func (r *Reconciler) Loop(ctx context.Context, s schedule.Schedule) error {
	now := r.now()
	next := s.Next(now)
	prev := next.Add(-schedule.Period(s, now))

	for {
		r.logger.DebugContext(ctx, "next reconciliation scheduled",
			slog.Time("next_run", next),
			slog.Time("window_start", prev),
		)

		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		runAt := r.now()
		report, err := r.Run(ctx, runAt, runAt.Sub(prev))
		switch {
		case err != nil:
			// prev stays put so the next window reaches back over the
			// period this run could not cover.
		case report.Cancelled:
			return nil
		default:
			prev = runAt
		}
		next = s.Next(r.now())
	}
}
