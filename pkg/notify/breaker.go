package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker around a Dispatcher.
type BreakerConfig struct {
	FailureThreshold uint32        `env:"NOTIFY_BREAKER_FAILURES"  envDefault:"5"`
	OpenTimeout      time.Duration `env:"NOTIFY_BREAKER_TIMEOUT"   envDefault:"30s"`
	HalfOpenRequests uint32        `env:"NOTIFY_BREAKER_HALF_OPEN" envDefault:"1"`
	Interval         time.Duration `env:"NOTIFY_BREAKER_INTERVAL"  envDefault:"1m"`
}

type breakerDispatcher struct {
	next    Dispatcher
	breaker *gobreaker.CircuitBreaker[any]
}

// WithCircuitBreaker wraps next so that after FailureThreshold consecutive
// transport failures further sends fail fast with ReasonCircuitOpen until
// OpenTimeout passes. Template and message errors do not count as failures.
func WithCircuitBreaker(next Dispatcher, cfg BreakerConfig, log *slog.Logger) Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	threshold := max(cfg.FailureThreshold, 1)

	settings := gobreaker.Settings{
		Name:        "notify",
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var de *DispatchError
			if errors.As(err, &de) {
				return de.Reason != ReasonTransport && de.Reason != ReasonTimeout
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &breakerDispatcher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *breakerDispatcher) Send(ctx context.Context, id TemplateID, recipient string, params map[string]string) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.next.Send(ctx, id, recipient, params)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &DispatchError{Template: id, Recipient: recipient, Reason: ReasonCircuitOpen, Err: ErrCircuitOpen}
	}
	return err
}
