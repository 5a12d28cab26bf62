package subscription

import "time"

// Status is the persisted billing state of a user's subscription.
type Status string

const (
	StatusFreeTrial       Status = "free_trial"
	StatusPro             Status = "pro"    // freshly synced by the billing webhook
	StatusActive          Status = "active" // renewed or resumed paid period
	StatusCancelScheduled Status = "cancel_scheduled"
	StatusCancelled       Status = "cancelled"
	StatusExpired         Status = "expired"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusFreeTrial, StatusPro, StatusActive, StatusCancelScheduled, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Statuses returns all known statuses in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusFreeTrial,
		StatusPro,
		StatusActive,
		StatusCancelScheduled,
		StatusCancelled,
		StatusExpired,
	}
}

// Type is the billing cadence of a subscription.
type Type string

const (
	TypeMonthly Type = "monthly"
	TypeYearly  Type = "yearly"
	TypeFree    Type = "free"
)

// Valid reports whether t is one of the known subscription types.
func (t Type) Valid() bool {
	switch t {
	case TypeMonthly, TypeYearly, TypeFree:
		return true
	}
	return false
}

const (
	// DefaultTrialDays is the trial length granted on first authentication.
	DefaultTrialDays = 14

	day = 24 * time.Hour
)
