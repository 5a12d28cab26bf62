package subscription

import "time"

// Entitlement is the effective, access-control-relevant view of a subscription.
type Entitlement struct {
	Status        Status // derived status, always one of Statuses()
	IsPro         bool
	IsTrialing    bool
	IsExpired     bool
	TrialDaysLeft int // never negative
}

// HasAccess reports whether the entitlement grants access to gated features.
func (e Entitlement) HasAccess() bool {
	return e.IsPro || e.IsTrialing
}

// Resolve derives the effective entitlement of a subscription source at now.
// It is pure, runs in constant time and never fails: malformed input degrades
// to a state without access rather than granting it.
func Resolve(src Source, now time.Time) Entitlement {
	rec := src.Canonical()

	derived := rec.Status
	if !derived.Valid() {
		derived = StatusExpired
	}

	daysLeft := 0
	if rec.TrialEnd != nil {
		daysLeft = daysUntil(*rec.TrialEnd, now)
		if derived == StatusFreeTrial && daysLeft == 0 {
			derived = StatusExpired
		}
	}

	isPro := false
	switch derived {
	case StatusPro, StatusActive:
		isPro = true
	case StatusCancelScheduled:
		// The end of a paid period is exclusive.
		if rec.SubscriptionEnd != nil && rec.SubscriptionEnd.After(now) {
			isPro = true
		} else {
			derived = StatusExpired
		}
	}

	return Entitlement{
		Status:        derived,
		IsPro:         isPro,
		IsTrialing:    derived == StatusFreeTrial,
		IsExpired:     derived == StatusExpired,
		TrialDaysLeft: daysLeft,
	}
}

// daysUntil returns the number of started days between now and end, rounded up.
func daysUntil(end, now time.Time) int {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / day)
	if remaining%day != 0 {
		days++
	}
	return days
}

// Resolver binds Resolve to a clock.
type Resolver struct {
	now func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a Resolver using the UTC wall clock.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves src at the resolver's current time.
func (r *Resolver) Resolve(src Source) Entitlement {
	return Resolve(src, r.now())
}

// Now returns the resolver's current time.
func (r *Resolver) Now() time.Time {
	return r.now()
}
