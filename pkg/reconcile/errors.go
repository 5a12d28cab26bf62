package reconcile

import "errors"

var (
	ErrStoreUnavailable = errors.New("billing record store unavailable")
	ErrUnauthorized     = errors.New("unauthorized reconciliation trigger")
	ErrMissingRecipient = errors.New("notification recipient missing")
	ErrRunInProgress    = errors.New("reconciliation run already in progress")
	ErrMissingSecret    = errors.New("cron secret is required")
)
