package sqlitestore

import "errors"

var (
	ErrFailedToOpenDB          = errors.New("failed to open sqlite database")
	ErrFailedToApplyMigrations = errors.New("failed to apply sqlite migrations")
	ErrInvalidTimestamp        = errors.New("invalid stored timestamp")
)
