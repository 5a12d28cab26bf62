package subscription

import "context"

type entitlementCtxKey struct{}

// WithEntitlement stores a resolved entitlement in the context.
func WithEntitlement(ctx context.Context, e Entitlement) context.Context {
	return context.WithValue(ctx, entitlementCtxKey{}, e)
}

// EntitlementFromContext returns the entitlement stored by the gate middleware.
func EntitlementFromContext(ctx context.Context) (Entitlement, bool) {
	e, ok := ctx.Value(entitlementCtxKey{}).(Entitlement)
	return e, ok
}
