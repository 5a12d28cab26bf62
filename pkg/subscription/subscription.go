package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Record is the persisted subscription of a user.
// Each user has at most one record, so UserID serves as the natural key.
type Record struct {
	ID                     string // empty until the first provider sync
	UserID                 uuid.UUID
	Status                 Status
	Type                   Type
	TrialStart             *time.Time
	TrialEnd               *time.Time
	SubscriptionStart      *time.Time // set once a paid period has begun
	SubscriptionEnd        *time.Time
	ExternalSubscriptionID string // provider's subscription ID, empty for trial-only users
	UpdatedAt              time.Time
}

// NewTrialRecord returns the record every user gets at first authentication:
// a free trial of DefaultTrialDays starting at now.
func NewTrialRecord(userID uuid.UUID, now time.Time) *Record {
	start := now.UTC()
	end := start.AddDate(0, 0, DefaultTrialDays)
	return &Record{
		UserID:     userID,
		Status:     StatusFreeTrial,
		Type:       TypeFree,
		TrialStart: &start,
		TrialEnd:   &end,
		UpdatedAt:  start,
	}
}

// HasPaidPeriod returns true once the billing provider has started a paid period.
func (r *Record) HasPaidPeriod() bool {
	return r.SubscriptionStart != nil
}

// Clone returns a deep copy of the record.
// Stores hand out clones so callers can never mutate persisted state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.TrialStart = cloneTime(r.TrialStart)
	c.TrialEnd = cloneTime(r.TrialEnd)
	c.SubscriptionStart = cloneTime(r.SubscriptionStart)
	c.SubscriptionEnd = cloneTime(r.SubscriptionEnd)
	return &c
}

// FallbackMetadata holds the bootstrap subscription fields embedded on the user
// profile. It is consulted only when no Record exists yet.
type FallbackMetadata struct {
	Status   Status
	Type     Type
	TrialEnd *time.Time
}

// Source is either a persisted Record or profile FallbackMetadata.
// The zero value is an empty fallback and canonicalizes to a free trial without trial data.
type Source struct {
	userID   uuid.UUID
	record   *Record
	fallback FallbackMetadata
}

// FromRecord wraps a persisted record.
func FromRecord(r Record) Source {
	return Source{userID: r.UserID, record: &r}
}

// FromFallback wraps profile metadata for a user without a persisted record.
func FromFallback(userID uuid.UUID, f FallbackMetadata) Source {
	return Source{userID: userID, fallback: f}
}

// SourceOf picks the record when present and the fallback otherwise.
func SourceOf(userID uuid.UUID, r *Record, f FallbackMetadata) Source {
	if r != nil {
		return FromRecord(*r)
	}
	return FromFallback(userID, f)
}

// IsFallback reports whether the source was synthesized from profile metadata.
func (s Source) IsFallback() bool {
	return s.record == nil
}

// Canonical returns the Record-shaped value that resolution works on.
// Fallback metadata yields a synthetic record with status free_trial unless the
// profile carries an explicit status.
func (s Source) Canonical() Record {
	if s.record != nil {
		return *s.record
	}

	status := s.fallback.Status
	if status == "" {
		status = StatusFreeTrial
	}
	typ := s.fallback.Type
	if typ == "" {
		typ = TypeFree
	}

	return Record{
		UserID:   s.userID,
		Status:   status,
		Type:     typ,
		TrialEnd: cloneTime(s.fallback.TrialEnd),
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
