// Package tenant carries the caller's tenant and identity on a context.
package tenant

import (
	"context"
	"strings"

	"contract-lifecycle/pkg/errutil"
)

// SystemUserID identifies writes performed by background jobs.
const SystemUserID = "system"

type ctxKey struct{}

// Context is the identity a request acts under. Every store access is
// scoped to TenantID.
type Context struct {
	TenantID        string
	UserID          string
	Roles           []string
	IsAuthenticated bool
}

func (c Context) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// System returns the identity used by scheduled jobs acting on tenantID.
func System(tenantID string) Context {
	return Context{
		TenantID:        tenantID,
		UserID:          SystemUserID,
		Roles:           []string{SystemUserID},
		IsAuthenticated: true,
	}
}

func With(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

func From(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// Require returns the tenant context on ctx, failing with Unauthorized when
// it is missing, unauthenticated or has no tenant.
func Require(ctx context.Context) (Context, error) {
	tc, ok := From(ctx)
	if !ok || !tc.IsAuthenticated {
		return Context{}, errutil.Unauthorized("authentication required", nil)
	}
	if strings.TrimSpace(tc.TenantID) == "" {
		return Context{}, errutil.Unauthorized("tenant context required", nil)
	}
	return tc, nil
}
