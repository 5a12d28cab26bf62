package subscription

import "errors"

var (
	ErrRecordNotFound  = errors.New("subscription record not found")
	ErrProfileNotFound = errors.New("user profile not found")
	ErrInvalidRecord   = errors.New("invalid subscription record")
	ErrMissingUserID   = errors.New("user ID is required")

	ErrUnknownEvent        = errors.New("unknown billing event")
	ErrFailedToSaveRecord  = errors.New("failed to save subscription record")
	ErrFailedToLoadRecord  = errors.New("failed to load subscription record")
	ErrFailedToLoadProfile = errors.New("failed to load user profile")

	ErrMissingWebhookSecret      = errors.New("billing provider webhook secret is required")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
	ErrInvalidWebhookPayload     = errors.New("invalid webhook payload")
)
