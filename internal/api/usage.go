package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mailforge/mailforge-cloud/internal/usage"
)

// UsageService handles the usage summary endpoint.
type UsageService struct {
	tracker *usage.Tracker
}

// NewUsageService creates a new UsageService.
func NewUsageService(tracker *usage.Tracker) *UsageService {
	return &UsageService{tracker: tracker}
}

// GetUsage handles GET /v1/usage
// Returns the caller's consumption against their plan for the current
// billing period. Reading the summary never creates a counter.
func (u *UsageService) GetUsage(ctx context.Context, input *GetUsageInput) (*GetUsageOutput, error) {
	principal, ok := GetPrincipal(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	plan, ok := GetUserPlan(ctx)
	if !ok {
		plan = usage.PlanFree
	}

	summary, err := u.tracker.GetSummary(ctx, principal.UserID, plan, time.Now().UTC())
	if err != nil {
		slog.Error("usage summary failed", "error", err, "user_id", principal.UserID)
		return nil, huma.Error503ServiceUnavailable("usage metering unavailable")
	}

	response := UsageResponse{
		Plan:            string(summary.PlanType),
		Period:          summary.PeriodKey,
		Basic:           tierUsageResponse(summary.Basic),
		Advanced:        tierUsageResponse(summary.Advanced),
		ResetsOn:        summary.ResetsOn.Format(time.RFC3339),
		LastResetReason: string(summary.LastResetReason),
	}
	if summary.LastResetAt != nil {
		at := summary.LastResetAt.Format(time.RFC3339)
		response.LastResetAt = &at
	}

	return &GetUsageOutput{Body: response}, nil
}

func tierUsageResponse(t usage.TierUsage) TierUsageResponse {
	return TierUsageResponse{
		Used:      t.Used,
		Limit:     t.Limit,
		Remaining: t.Remaining,
	}
}
