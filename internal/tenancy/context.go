package tenancy

import "context"

type ctxKey string

const principalKey ctxKey = "clinicflow.principal"

// Principal is the authenticated, clinic-scoped identity handed to the
// engine by the identity collaborator. Every query and mutation is filtered
// by ClinicID.
type Principal struct {
	UserID   string
	Role     string
	ClinicID string
}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal if present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	val := ctx.Value(principalKey)
	if val == nil {
		return Principal{}, false
	}
	p, ok := val.(Principal)
	return p, ok && p.ClinicID != ""
}

// ClinicIDFromContext extracts just the clinic id if present.
func ClinicIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.ClinicID, ok
}
