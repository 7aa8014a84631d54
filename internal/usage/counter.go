package usage

import "time"

// ResetReason records why a counter was last zeroed.
type ResetReason string

// Reset reason constants
const (
	ResetMonthly      ResetReason = "monthly"
	ResetSubscription ResetReason = "subscription"
)

// Counter is the per-(user, period) usage record. It is owned
// exclusively by the Tracker; callers mutate it only through Consume,
// Rollback, and Reset.
type Counter struct {
	UserID          string      `json:"user_id"`
	PeriodKey       string      `json:"period_key"`
	PlanType        PlanType    `json:"plan_type"`
	BasicCount      int         `json:"basic_count"`
	AdvancedCount   int         `json:"advanced_count"`
	UpdatedAt       time.Time   `json:"updated_at"`
	LastResetAt     *time.Time  `json:"last_reset_at,omitempty"`
	LastResetReason ResetReason `json:"last_reset_reason,omitempty"`
}

// newCounter synthesizes a zeroed counter for a user and period.
// Counters are created lazily on first consumption attempt.
func newCounter(userID, periodKey string, plan PlanType, at time.Time) *Counter {
	return &Counter{
		UserID:    userID,
		PeriodKey: periodKey,
		PlanType:  plan,
		UpdatedAt: at,
	}
}

// CountFor returns the count for a tier.
func (c *Counter) CountFor(tier Tier) int {
	if tier == TierAdvanced {
		return c.AdvancedCount
	}
	return c.BasicCount
}

// setCount replaces the count for a tier.
func (c *Counter) setCount(tier Tier, n int) {
	if tier == TierAdvanced {
		c.AdvancedCount = n
		return
	}
	c.BasicCount = n
}
