package simpleasset

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Principal is an authenticated caller.
type Principal struct {
	Subject string
	Email   string
}

// IsZero reports whether no caller identity is present.
func (p Principal) IsZero() bool {
	return strings.TrimSpace(p.Subject) == ""
}

// TenantResolver maps a principal to the tenant that scopes its reads and
// writes. It fails with *AuthenticationError or *TenantResolutionError.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, principal Principal) (uuid.UUID, error)
}

// TenantResolverFunc adapts a function to TenantResolver.
type TenantResolverFunc func(ctx context.Context, principal Principal) (uuid.UUID, error)

func (f TenantResolverFunc) ResolveTenant(ctx context.Context, principal Principal) (uuid.UUID, error) {
	return f(ctx, principal)
}

// ProfileStore returns the tenant recorded on a principal's profile, or
// ErrNotFound.
type ProfileStore interface {
	LookupTenant(ctx context.Context, subject string) (uuid.UUID, error)
}

// ProfileTenantResolver resolves tenants through a ProfileStore.
type ProfileTenantResolver struct {
	profiles ProfileStore
}

// NewProfileTenantResolver creates a resolver backed by profiles.
func NewProfileTenantResolver(profiles ProfileStore) *ProfileTenantResolver {
	return &ProfileTenantResolver{profiles: profiles}
}

func (r *ProfileTenantResolver) ResolveTenant(ctx context.Context, principal Principal) (uuid.UUID, error) {
	if principal.IsZero() {
		return uuid.Nil, &AuthenticationError{Reason: "missing subject"}
	}
	tenantID, err := r.profiles.LookupTenant(ctx, principal.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, &TenantResolutionError{Principal: principal.Subject}
		}
		return uuid.Nil, &TenantResolutionError{Principal: principal.Subject, Err: err}
	}
	if tenantID == uuid.Nil {
		return uuid.Nil, &TenantResolutionError{Principal: principal.Subject}
	}
	return tenantID, nil
}
