package reconcile

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/contentplan/backend/handler"
	"github.com/contentplan/backend/pkg/logger"
)

type triggerRequest struct{}

// BearerAuth rejects requests whose Authorization header does not carry
// "Bearer <secret>". The comparison is constant-time.
func BearerAuth[C handler.Context, R any](secret string) handler.Decorator[C, R] {
	want := []byte("Bearer " + secret)
	return func(next handler.HandlerFunc[C, R]) handler.HandlerFunc[C, R] {
		return func(ctx C, req R) handler.Response {
			got := []byte(strings.TrimSpace(ctx.Request().Header.Get("Authorization")))
			if secret == "" || subtle.ConstantTimeCompare(got, want) != 1 {
				return handler.JSONError(handler.ErrUnauthorized)
			}
			return next(ctx, req)
		}
	}
}

var errRunConflict = handler.NewHTTPError(http.StatusConflict, "run_in_progress")

// TriggerHandler exposes a synchronous run for an external scheduler.
// It answers 401 without the shared secret, 405 for anything but GET,
// 200 with the run summary and 500 when the store is unavailable.
// A non-positive window uses the reconciler's default. A caller that goes
// away mid-run gets a summary with cancelled set, not a store error.
func TriggerHandler(r *Reconciler, secret string, window time.Duration) http.HandlerFunc {
	if secret == "" {
		panic(ErrMissingSecret)
	}

	h := func(ctx handler.Context, _ triggerRequest) handler.Response {
		report, err := r.Run(ctx, r.Now(), window)
		switch {
		case errors.Is(err, ErrRunInProgress):
			return handler.JSONError(errRunConflict)
		case err != nil:
			r.logger.ErrorContext(ctx, "triggered reconciliation failed", logger.Error(err))
			return handler.JSONError(&handler.ErrorDetail{
				Code:    "store_unavailable",
				Message: ErrStoreUnavailable.Error(),
			})
		}
		return handler.JSONBody(report.Summary())
	}

	return handler.Wrap(h,
		handler.WithDecorators(
			BearerAuth[handler.Context, triggerRequest](secret),
			handler.AllowMethods[handler.Context, triggerRequest](http.MethodGet),
		),
		handler.WithErrorHandler[handler.Context, triggerRequest](handler.NewErrorHandler(r.logger)),
	)
}
