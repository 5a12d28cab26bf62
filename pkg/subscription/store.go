package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the read side of subscription persistence used by the entitlement engine.
// Each user has at most one record, so UserID serves as the primary key.
type Store interface {
	// FindByUserID retrieves the record of a user.
	// Returns ErrRecordNotFound if no record exists.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Record, error)

	// FindUpdatedSince returns records with the given status whose UpdatedAt is
	// not before since. An empty typ matches every subscription type.
	FindUpdatedSince(ctx context.Context, status Status, typ Type, since time.Time) ([]Record, error)
}

// Writer is the write side used exclusively by the billing sync path.
type Writer interface {
	// Save creates or updates a record keyed by UserID.
	Save(ctx context.Context, record *Record) error

	// Create inserts record unless the user already has one, in which case
	// nothing is written. It reports whether record was inserted.
	Create(ctx context.Context, record *Record) (bool, error)
}

// ReadWriter combines Store and Writer.
type ReadWriter interface {
	Store
	Writer
}

// Profile is the subset of the user profile the engine needs.
type Profile struct {
	UserID   uuid.UUID
	Email    string
	Name     string
	Fallback FallbackMetadata
}

// Profiles looks up user profiles.
type Profiles interface {
	// FindProfile returns ErrProfileNotFound if the user is unknown.
	FindProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}
