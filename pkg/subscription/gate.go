package subscription

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/contentplan/backend/handler"
	"github.com/contentplan/backend/pkg/logger"
)

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed     bool
	Entitlement Entitlement
	Fallback    bool  // resolved from profile metadata instead of a record
	Err         error // lookup error that forced a deny, if any
}

// Gate decides whether a user may use gated features.
// It only reads subscription state and never mutates it.
type Gate struct {
	store    Store
	profiles Profiles
	resolver *Resolver
	logger   *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateResolver sets the resolver, e.g. one with a fixed clock.
func WithGateResolver(r *Resolver) GateOption {
	return func(g *Gate) {
		if r != nil {
			g.resolver = r
		}
	}
}

// WithGateLogger sets the logger used to report lookup failures.
func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGate creates a Gate.
// Panics if store or profiles is nil to fail fast during initialization.
func NewGate(store Store, profiles Profiles, opts ...GateOption) *Gate {
	if store == nil {
		panic("subscription: Store is required")
	}
	if profiles == nil {
		panic("subscription: Profiles is required")
	}

	g := &Gate{
		store:    store,
		profiles: profiles,
		resolver: NewResolver(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check resolves the user's entitlement and allows access for pro and trialing users.
// Any lookup failure denies access.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID) Decision {
	if userID == uuid.Nil {
		return Decision{Err: ErrMissingUserID, Entitlement: expiredEntitlement()}
	}

	src, err := g.source(ctx, userID)
	if err != nil {
		g.logger.WarnContext(ctx, "entitlement lookup failed, denying access",
			logger.Component("entitlement_gate"),
			logger.UserID(userID),
			logger.Error(err))
		return Decision{Err: err, Entitlement: expiredEntitlement()}
	}

	ent := g.resolver.Resolve(src)
	return Decision{
		Allowed:     ent.HasAccess(),
		Entitlement: ent,
		Fallback:    src.IsFallback(),
	}
}

// Entitlement resolves the user's entitlement without making an access decision.
func (g *Gate) Entitlement(ctx context.Context, userID uuid.UUID) (Entitlement, error) {
	src, err := g.source(ctx, userID)
	if err != nil {
		return expiredEntitlement(), err
	}
	return g.resolver.Resolve(src), nil
}

func (g *Gate) source(ctx context.Context, userID uuid.UUID) (Source, error) {
	rec, err := g.store.FindByUserID(ctx, userID)
	if err == nil {
		return FromRecord(*rec), nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return Source{}, errors.Join(ErrFailedToLoadRecord, err)
	}

	profile, err := g.profiles.FindProfile(ctx, userID)
	if err != nil {
		return Source{}, errors.Join(ErrFailedToLoadProfile, err)
	}
	return FromFallback(userID, profile.Fallback), nil
}

func expiredEntitlement() Entitlement {
	return Entitlement{Status: StatusExpired, IsExpired: true}
}

// UserIDFunc extracts the authenticated user ID from a request.
type UserIDFunc func(r *http.Request) (uuid.UUID, bool)

// Middleware guards handlers behind the gate. Allowed requests carry the
// resolved entitlement in their context. Denied browser requests are redirected
// to upgradeURL; requests accepting JSON get 402 Payment Required.
func (g *Gate) Middleware(userID UserIDFunc, upgradeURL string) func(http.Handler) http.Handler {
	if userID == nil {
		panic("subscription: UserIDFunc is required")
	}
	if upgradeURL == "" {
		upgradeURL = "/"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := userID(r)
			if !ok {
				deny(w, r, handler.ErrUnauthorized, upgradeURL)
				return
			}

			decision := g.Check(r.Context(), id)
			if !decision.Allowed {
				deny(w, r, handler.ErrPaymentRequired, upgradeURL)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithEntitlement(r.Context(), decision.Entitlement)))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, err handler.HTTPError, upgradeURL string) {
	if wantsJSON(r) {
		_ = handler.JSONError(err).Render(w, r)
		return
	}
	_ = handler.Redirect(upgradeURL).Render(w, r)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
