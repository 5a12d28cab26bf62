package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WebhookParser validates and normalizes billing provider webhooks.
// Implementations must verify the signature to prevent spoofed state changes.
// Events the engine does not track are reported with ErrUnknownEvent.
type WebhookParser interface {
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// EventType is the normalized billing event type.
// Each provider implementation maps its specific events to these types.
type EventType string

const (
	EventStarted         EventType = "subscription_started"
	EventRenewed         EventType = "subscription_renewed"
	EventResumed         EventType = "subscription_resumed"
	EventCancelScheduled EventType = "subscription_cancel_scheduled"
	EventCancelled       EventType = "subscription_cancelled"
)

// Event is a normalized billing provider event.
type Event struct {
	Type                   EventType
	ProviderEvent          string // original provider event name
	UserID                 uuid.UUID
	ExternalSubscriptionID string
	SubscriptionType       Type
	PeriodStart            *time.Time
	PeriodEnd              *time.Time
	EffectiveAt            *time.Time // when a cancellation takes effect
	OccurredAt             time.Time
}
