// Package usage meters per-user monthly consumption against
// subscription plan limits. Counters are bucketed by UTC calendar
// month and mutated only through transactional read-check-write
// cycles, so quota enforcement stays exact under concurrent requests.
package usage

import (
	"context"
	"fmt"
	"time"
)

// Tracker decides, for every billable request, whether it is allowed,
// records consumption atomically, and supports rollback and reset.
// It holds no state of its own; all counters live in the store.
type Tracker struct {
	store CounterStore
}

// NewTracker creates a Tracker over the given counter store.
func NewTracker(store CounterStore) *Tracker {
	return &Tracker{store: store}
}

// ConsumeResult reports the outcome of a consumption attempt.
type ConsumeResult struct {
	Allowed       bool
	Tier          Tier
	PlanType      PlanType
	Limit         *int // nil when unlimited
	Remaining     *int // nil when unlimited
	BasicCount    int
	AdvancedCount int
	ResetsOn      time.Time
}

// TierUsage is the read-only per-tier projection in a Summary.
type TierUsage struct {
	Used      int
	Limit     *int // nil when unlimited
	Remaining *int // nil when unlimited
}

// Summary is the read-only usage projection for one user and period.
type Summary struct {
	PlanType        PlanType
	PeriodKey       string
	Basic           TierUsage
	Advanced        TierUsage
	LastResetAt     *time.Time
	LastResetReason ResetReason
	ResetsOn        time.Time
}

// Consume attempts to bill one request at the tier resolved from
// model. Inside a single store transaction it loads (or lazily
// creates) the counter for the month containing requestedAt, checks
// the plan limit, and either increments the tier count by one or
// rejects without writing. Rejection is a normal outcome
// (Allowed=false), not an error; errors mean the quota could not be
// verified and the caller must fail the request closed.
func (t *Tracker) Consume(ctx context.Context, userID string, plan PlanType, model string, requestedAt time.Time) (*ConsumeResult, error) {
	tier := ResolveTier(model)
	periodKey := PeriodKey(requestedAt)
	limit := LimitsFor(plan).ForTier(tier)

	result := &ConsumeResult{
		Tier:     tier,
		PlanType: plan,
		ResetsOn: NextReset(requestedAt),
	}

	err := t.store.Update(ctx, userID, periodKey, func(ctx context.Context, tx CounterTx) error {
		counter, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		if counter == nil {
			counter = newCounter(userID, periodKey, plan, requestedAt)
		}

		current := counter.CountFor(tier)

		if !IsUnlimited(limit) && current >= limit {
			// Hard cap reached; leave the counter untouched.
			result.Allowed = false
			result.Limit = intPtr(limit)
			result.Remaining = intPtr(0)
			result.BasicCount = counter.BasicCount
			result.AdvancedCount = counter.AdvancedCount
			return nil
		}

		counter.setCount(tier, current+1)
		counter.PlanType = plan
		counter.UpdatedAt = requestedAt

		if err := tx.Set(ctx, counter); err != nil {
			return err
		}

		result.Allowed = true
		result.BasicCount = counter.BasicCount
		result.AdvancedCount = counter.AdvancedCount
		if !IsUnlimited(limit) {
			result.Limit = intPtr(limit)
			result.Remaining = intPtr(limit - counter.CountFor(tier))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("consume usage for %s: %w", userID, err)
	}

	return result, nil
}

// Rollback compensates for a consumption whose downstream work failed:
// it decrements the tier count for the period containing occurredAt,
// floored at zero. A missing counter is a no-op. This runs in its own
// transaction, separate from the original Consume; a crash between the
// two leaves at most one extra charge, and duplicate rollbacks can
// never drive a count negative.
func (t *Tracker) Rollback(ctx context.Context, userID, model string, occurredAt time.Time) error {
	tier := ResolveTier(model)
	periodKey := PeriodKey(occurredAt)

	err := t.store.Update(ctx, userID, periodKey, func(ctx context.Context, tx CounterTx) error {
		counter, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		if counter == nil {
			return nil
		}

		current := counter.CountFor(tier)
		if current == 0 {
			return nil
		}

		counter.setCount(tier, current-1)
		counter.UpdatedAt = occurredAt
		return tx.Set(ctx, counter)
	})
	if err != nil {
		return fmt.Errorf("rollback usage for %s: %w", userID, err)
	}
	return nil
}

// Reset zeroes both counts for the period containing resetDate and
// stamps the reset audit fields. Used on subscription purchase/renewal
// to grant a fresh quota immediately instead of waiting for calendar
// rollover. Reset always wins; no read-check is needed.
func (t *Tracker) Reset(ctx context.Context, userID string, plan PlanType, reason ResetReason, resetDate time.Time) error {
	periodKey := PeriodKey(resetDate)

	err := t.store.Update(ctx, userID, periodKey, func(ctx context.Context, tx CounterTx) error {
		counter := newCounter(userID, periodKey, plan, resetDate)
		at := resetDate
		counter.LastResetAt = &at
		counter.LastResetReason = reason
		return tx.Set(ctx, counter)
	})
	if err != nil {
		return fmt.Errorf("reset usage for %s: %w", userID, err)
	}
	return nil
}

// GetSummary returns the read-only usage projection for the period
// containing asOf. It never mutates; an absent counter reads as zeros.
func (t *Tracker) GetSummary(ctx context.Context, userID string, plan PlanType, asOf time.Time) (*Summary, error) {
	periodKey := PeriodKey(asOf)

	counter, err := t.store.Get(ctx, userID, periodKey)
	if err != nil {
		return nil, fmt.Errorf("load usage summary for %s: %w", userID, err)
	}
	if counter == nil {
		counter = newCounter(userID, periodKey, plan, asOf)
	}

	limits := LimitsFor(plan)
	summary := &Summary{
		PlanType:        plan,
		PeriodKey:       periodKey,
		Basic:           tierUsage(counter.BasicCount, limits.Basic),
		Advanced:        tierUsage(counter.AdvancedCount, limits.Advanced),
		LastResetAt:     counter.LastResetAt,
		LastResetReason: counter.LastResetReason,
		ResetsOn:        NextReset(asOf),
	}
	return summary, nil
}

// tierUsage builds a TierUsage, flooring remaining at zero and leaving
// limit/remaining nil for unlimited tiers.
func tierUsage(used, limit int) TierUsage {
	u := TierUsage{Used: used}
	if IsUnlimited(limit) {
		return u
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	u.Limit = intPtr(limit)
	u.Remaining = intPtr(remaining)
	return u
}

func intPtr(n int) *int {
	return &n
}
