package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"

	"github.com/contentplan/backend/handler"
	"github.com/contentplan/backend/pkg/logger"
)

// PaddleConfig holds configuration for the Paddle webhook integration.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// PaddleProvider implements WebhookParser for Paddle Billing.
type PaddleProvider struct {
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle webhook parser.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	return &PaddleProvider{
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
	}, nil
}

// paddleEvent is the subset of a Paddle notification the engine reads.
type paddleEvent struct {
	EventID    string             `json:"event_id"`
	EventType  string             `json:"event_type"`
	OccurredAt time.Time          `json:"occurred_at"`
	Data       paddleSubscription `json:"data"`
}

type paddleSubscription struct {
	ID                   string         `json:"id"`
	Status               string         `json:"status"`
	CustomData           map[string]any `json:"custom_data"`
	CanceledAt           *time.Time     `json:"canceled_at"`
	CurrentBillingPeriod *paddlePeriod  `json:"current_billing_period"`
	ScheduledChange      *paddleChange  `json:"scheduled_change"`
	Items                []paddleItem   `json:"items"`
}

type paddlePeriod struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type paddleChange struct {
	Action      string     `json:"action"`
	EffectiveAt *time.Time `json:"effective_at"`
}

type paddleItem struct {
	Price struct {
		ID           string `json:"id"`
		BillingCycle *struct {
			Interval  string `json:"interval"`
			Frequency int    `json:"frequency"`
		} `json:"billing_cycle"`
	} `json:"price"`
}

// ParseWebhook verifies the Paddle-Signature header and normalizes
// subscription notifications into an Event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	// The SDK verifier works on requests, so rebuild one around the payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	return parsePaddlePayload(payload)
}

func parsePaddlePayload(payload []byte) (*Event, error) {
	var pe paddleEvent
	if err := json.Unmarshal(payload, &pe); err != nil {
		return nil, errors.Join(ErrInvalidWebhookPayload, err)
	}

	eventType, ok := mapPaddleEvent(pe)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, pe.EventType)
	}

	userID, err := paddleUserID(pe.Data.CustomData)
	if err != nil {
		return nil, err
	}

	event := &Event{
		Type:                   eventType,
		ProviderEvent:          pe.EventType,
		UserID:                 userID,
		ExternalSubscriptionID: pe.Data.ID,
		SubscriptionType:       paddleSubscriptionType(pe.Data.Items),
		OccurredAt:             pe.OccurredAt,
	}
	if period := pe.Data.CurrentBillingPeriod; period != nil {
		event.PeriodStart = period.StartsAt
		event.PeriodEnd = period.EndsAt
	}

	switch eventType {
	case EventCancelScheduled:
		event.EffectiveAt = pe.Data.ScheduledChange.EffectiveAt
	case EventCancelled:
		event.EffectiveAt = pe.Data.CanceledAt
	}

	return event, nil
}

// mapPaddleEvent maps a Paddle notification to the normalized event type.
func mapPaddleEvent(pe paddleEvent) (EventType, bool) {
	status := strings.ToLower(pe.Data.Status)

	switch pe.EventType {
	case "subscription.created", "subscription.activated":
		return EventStarted, true
	case "subscription.resumed":
		return EventResumed, true
	case "subscription.canceled":
		return EventCancelled, true
	case "subscription.updated":
		if change := pe.Data.ScheduledChange; change != nil && change.Action == "cancel" {
			return EventCancelScheduled, true
		}
		switch status {
		case "canceled":
			return EventCancelled, true
		case "active":
			return EventRenewed, true
		}
	}
	return "", false
}

// paddleUserID reads our user ID from the checkout custom data.
func paddleUserID(customData map[string]any) (uuid.UUID, error) {
	for _, key := range []string{"user_id", "customer_id"} {
		raw, ok := customData[key].(string)
		if !ok || raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: invalid user ID %q", ErrInvalidWebhookPayload, raw)
		}
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("%w: missing user ID in custom data", ErrInvalidWebhookPayload)
}

func paddleSubscriptionType(items []paddleItem) Type {
	for _, item := range items {
		if item.Price.BillingCycle == nil {
			continue
		}
		switch item.Price.BillingCycle.Interval {
		case "year":
			return TypeYearly
		case "month":
			return TypeMonthly
		}
	}
	return ""
}

type webhookRequest struct{}

type webhookAck struct {
	Received bool `json:"received"`
}

const maxWebhookBody = 1 << 20

// WebhookHandler returns an HTTP handler that feeds provider webhooks into the syncer.
// Signature failures answer 401, malformed payloads 400 and store failures 500
// so the provider redelivers.
func WebhookHandler(s *Syncer, signatureHeader string, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("billing_webhook"))

	h := func(ctx handler.Context, _ webhookRequest) handler.Response {
		r := ctx.Request()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			log.WarnContext(ctx, "unreadable billing webhook", logger.Error(err))
			return handler.JSONError(handler.ErrBadRequest)
		}

		err = s.HandleWebhook(ctx, body, r.Header.Get(signatureHeader))
		switch {
		case err == nil:
			return handler.JSONBody(webhookAck{Received: true})
		case errors.Is(err, ErrWebhookVerificationFailed):
			log.WarnContext(ctx, "rejected billing webhook", logger.Error(err))
			return handler.JSONError(handler.ErrUnauthorized)
		case errors.Is(err, ErrInvalidWebhookPayload), errors.Is(err, ErrMissingUserID):
			log.WarnContext(ctx, "malformed billing webhook", logger.Error(err))
			return handler.JSONError(handler.ErrBadRequest)
		default:
			log.ErrorContext(ctx, "billing webhook processing failed", logger.Error(err))
			return handler.JSONError(handler.ErrInternalServer)
		}
	}

	return handler.Wrap(h,
		handler.WithDecorators(handler.AllowMethods[handler.Context, webhookRequest](http.MethodPost)),
		handler.WithErrorHandler[handler.Context, webhookRequest](handler.NewErrorHandler(log)),
	)
}
