// Package access holds the authenticated principal and the composable checks
// that decide whether it may perform an operation.
package access

import (
	"context"
	"fmt"

	"github.com/workdoc/workdoc/internal/model"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Role   model.Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

// Check is one access rule. It returns nil to allow, or an error wrapping
// model.ErrUnauthorized or model.ErrForbidden.
type Check func(p *Principal) error

// RequireAuthenticated rejects anonymous callers.
func RequireAuthenticated() Check {
	return func(p *Principal) error {
		if p == nil || p.UserID == "" {
			return fmt.Errorf("authentication required: %w", model.ErrUnauthorized)
		}
		return nil
	}
}

// RequireRole allows only principals holding role.
func RequireRole(role model.Role) Check {
	return func(p *Principal) error {
		if err := RequireAuthenticated()(p); err != nil {
			return err
		}
		if p.Role != role {
			return fmt.Errorf("%s role required: %w", role, model.ErrForbidden)
		}
		return nil
	}
}

// RequireSelfOrAdmin allows the owner of a resource and any admin.
func RequireSelfOrAdmin(ownerID string) Check {
	return func(p *Principal) error {
		if err := RequireAuthenticated()(p); err != nil {
			return err
		}
		if p.IsAdmin() || p.UserID == ownerID {
			return nil
		}
		return fmt.Errorf("access denied: %w", model.ErrForbidden)
	}
}

// Evaluate runs checks in order and returns the first failure.
func Evaluate(p *Principal, checks ...Check) error {
	for _, c := range checks {
		if err := c(p); err != nil {
			return err
		}
	}
	return nil
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal attached by the auth middleware, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}
