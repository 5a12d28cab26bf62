package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/contentplan/backend/pkg/logger"
)

// Syncer is the only writer of subscription records. It creates the trial
// record at first authentication and applies billing provider events.
type Syncer struct {
	store  ReadWriter
	parser WebhookParser
	now    func() time.Time
	logger *slog.Logger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithWebhookParser enables HandleWebhook.
func WithWebhookParser(p WebhookParser) SyncerOption {
	return func(s *Syncer) {
		if p != nil {
			s.parser = p
		}
	}
}

// WithSyncerClock overrides the time source.
func WithSyncerClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSyncerLogger sets the logger.
func WithSyncerLogger(l *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSyncer creates a Syncer. Panics if store is nil.
func NewSyncer(store ReadWriter, opts ...SyncerOption) *Syncer {
	if store == nil {
		panic("subscription: ReadWriter is required")
	}

	s := &Syncer{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureTrial returns the user's record, creating the default free trial when
// none exists. Safe to call on every successful authentication.
func (s *Syncer) EnsureTrial(ctx context.Context, userID uuid.UUID) (*Record, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}

	rec, err := s.store.FindByUserID(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, errors.Join(ErrFailedToLoadRecord, err)
	}

	rec = NewTrialRecord(userID, s.now())
	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return nil, errors.Join(ErrFailedToSaveRecord, err)
	}
	if !created {
		// a billing event saved the record after the lookup
		rec, err = s.store.FindByUserID(ctx, userID)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadRecord, err)
		}
		return rec, nil
	}

	s.logger.InfoContext(ctx, "created trial subscription",
		logger.Component("subscription_sync"),
		logger.UserID(userID),
		slog.Time("trial_end", *rec.TrialEnd))

	return rec, nil
}

// HandleWebhook verifies and applies a provider webhook.
// Untracked provider events are acknowledged without changes.
func (s *Syncer) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.parser == nil {
		return errors.New("subscription: webhook parser is not configured")
	}

	event, err := s.parser.ParseWebhook(ctx, payload, signature)
	if errors.Is(err, ErrUnknownEvent) {
		s.logger.DebugContext(ctx, "ignoring billing event",
			logger.Component("subscription_sync"),
			logger.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	return s.Apply(ctx, *event)
}

// Apply moves the user's record to the state implied by event.
// Redelivered events that do not change state leave UpdatedAt untouched, so
// reconciliation never sees them as new transitions.
func (s *Syncer) Apply(ctx context.Context, event Event) error {
	if event.UserID == uuid.Nil {
		return ErrMissingUserID
	}

	current, err := s.store.FindByUserID(ctx, event.UserID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		current = nil
	case err != nil:
		return errors.Join(ErrFailedToLoadRecord, err)
	}

	now := s.now()
	next, err := applyEvent(current, event, now)
	if err != nil {
		return err
	}

	if current != nil && sameState(current, next) {
		s.logger.DebugContext(ctx, "billing event did not change subscription",
			logger.Component("subscription_sync"),
			logger.UserID(event.UserID),
			logger.EventType(string(event.Type)))
		return nil
	}

	next.UpdatedAt = now
	if err := s.store.Save(ctx, next); err != nil {
		return errors.Join(ErrFailedToSaveRecord, err)
	}

	s.logger.InfoContext(ctx, "subscription synced",
		logger.Component("subscription_sync"),
		logger.UserID(event.UserID),
		logger.EventType(string(event.Type)),
		slog.String("status", string(next.Status)))

	return nil
}

func applyEvent(current *Record, event Event, now time.Time) (*Record, error) {
	var next *Record
	if current != nil {
		next = current.Clone()
	} else {
		next = &Record{UserID: event.UserID, Type: TypeFree}
	}
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	if event.ExternalSubscriptionID != "" {
		next.ExternalSubscriptionID = event.ExternalSubscriptionID
	}

	switch event.Type {
	case EventStarted:
		if current != nil && event.ExternalSubscriptionID != "" &&
			current.ExternalSubscriptionID == event.ExternalSubscriptionID &&
			(current.Status == StatusActive || current.Status == StatusCancelScheduled) {
			// Out-of-order redelivery of the start event.
			return next, nil
		}
		next.Status = StatusPro
		next.Type = paidType(event.SubscriptionType, next.Type)
		next.SubscriptionStart = firstTime(event.PeriodStart, &now)
		next.SubscriptionEnd = cloneTime(event.PeriodEnd)

	case EventRenewed, EventResumed:
		next.Status = StatusActive
		next.Type = paidType(event.SubscriptionType, next.Type)
		if next.SubscriptionStart == nil {
			next.SubscriptionStart = firstTime(event.PeriodStart, &now)
		}
		if event.PeriodEnd != nil {
			next.SubscriptionEnd = cloneTime(event.PeriodEnd)
		}

	case EventCancelScheduled:
		end := firstTime(event.EffectiveAt, event.PeriodEnd)
		if end == nil {
			return nil, fmt.Errorf("%w: scheduled cancellation without end date", ErrInvalidWebhookPayload)
		}
		next.Status = StatusCancelScheduled
		next.SubscriptionEnd = end

	case EventCancelled:
		next.Status = StatusCancelled
		next.Type = TypeFree
		next.SubscriptionEnd = firstTime(event.EffectiveAt, &now)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event.Type)
	}

	return next, nil
}

func paidType(t, current Type) Type {
	if t == TypeMonthly || t == TypeYearly {
		return t
	}
	if current == TypeMonthly || current == TypeYearly {
		return current
	}
	return TypeMonthly
}

func firstTime(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return cloneTime(t)
		}
	}
	return nil
}

func sameState(a, b *Record) bool {
	return a.Status == b.Status &&
		a.Type == b.Type &&
		a.ExternalSubscriptionID == b.ExternalSubscriptionID &&
		equalTime(a.SubscriptionEnd, b.SubscriptionEnd)
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
