package api

import (
	"context"

	"github.com/mailforge/mailforge-cloud/internal/auth"
	"github.com/mailforge/mailforge-cloud/internal/usage"
)

// ctxKey is a type for context keys to avoid collisions
type ctxKey string

const (
	ctxPrincipal ctxKey = "principal"
	ctxUserPlan  ctxKey = "user_plan"
)

// GetPrincipal retrieves the authenticated principal from the request
// context. Returns the principal and true if found.
func GetPrincipal(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(*auth.Principal)
	return p, ok
}

// WithPrincipal adds the authenticated principal to the request context.
// This is typically called by authentication middleware after verifying
// the bearer token.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// GetUserPlan retrieves the subscription plan from the request context.
// Returns the plan and true if found.
func GetUserPlan(ctx context.Context) (usage.PlanType, bool) {
	plan, ok := ctx.Value(ctxUserPlan).(usage.PlanType)
	return plan, ok
}

// WithUserPlan adds the subscription plan to the request context.
func WithUserPlan(ctx context.Context, plan usage.PlanType) context.Context {
	return context.WithValue(ctx, ctxUserPlan, plan)
}
