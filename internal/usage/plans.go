package usage

import "strings"

// PlanType identifies a subscription plan.
type PlanType string

// Plan constants
const (
	PlanFree      PlanType = "free"
	PlanPro       PlanType = "pro"
	PlanUnlimited PlanType = "unlimited"
)

// Unlimited is the sentinel limit value meaning "no cap".
const Unlimited = -1

// PlanLimits defines monthly request limits for each usage tier.
type PlanLimits struct {
	Basic    int // -1 means unlimited
	Advanced int
}

// planLimits maps plan types to their monthly limits.
// Free users get no advanced-tier requests at all.
var planLimits = map[PlanType]PlanLimits{
	PlanFree: {
		Basic:    20,
		Advanced: 0,
	},
	PlanPro: {
		Basic:    5000,
		Advanced: 500,
	},
	PlanUnlimited: {
		Basic:    Unlimited,
		Advanced: Unlimited,
	},
}

// LimitsFor returns the monthly limits for a plan.
func LimitsFor(plan PlanType) PlanLimits {
	limits, ok := planLimits[plan]
	if !ok {
		return planLimits[PlanFree]
	}
	return limits
}

// ForTier returns the limit for a single tier.
func (l PlanLimits) ForTier(tier Tier) int {
	if tier == TierAdvanced {
		return l.Advanced
	}
	return l.Basic
}

// IsUnlimited checks if a limit value represents unlimited quota.
func IsUnlimited(limit int) bool {
	return limit < 0
}

// ResolvePlanType maps a raw plan string to a PlanType.
// Matching is case-insensitive; anything unrecognized (including the
// empty string) degrades to the free plan rather than failing.
func ResolvePlanType(raw string) PlanType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pro":
		return PlanPro
	case "unlimited":
		return PlanUnlimited
	default:
		return PlanFree
	}
}
