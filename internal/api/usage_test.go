package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailforge/mailforge-cloud/internal/usage"
)

func TestUsageService_GetUsage(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	service := NewUsageService(tracker)

	ctx := authedContext("user-1", usage.PlanPro)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_, err := tracker.Consume(ctx, "user-1", usage.PlanPro, "gpt-4o-mini", now)
		require.NoError(t, err)
	}
	_, err := tracker.Consume(ctx, "user-1", usage.PlanPro, "gpt-4o", now)
	require.NoError(t, err)

	out, err := service.GetUsage(ctx, &GetUsageInput{})
	require.NoError(t, err)

	assert.Equal(t, "pro", out.Body.Plan)
	assert.Equal(t, 3, out.Body.Basic.Used)
	require.NotNil(t, out.Body.Basic.Remaining)
	assert.Equal(t, 4997, *out.Body.Basic.Remaining)
	assert.Equal(t, 1, out.Body.Advanced.Used)
	require.NotNil(t, out.Body.Advanced.Limit)
	assert.Equal(t, 500, *out.Body.Advanced.Limit)
	assert.NotEmpty(t, out.Body.ResetsOn)
}

func TestUsageService_GetUsage_NoActivity(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	service := NewUsageService(tracker)

	ctx := authedContext("user-1", usage.PlanUnlimited)
	out, err := service.GetUsage(ctx, &GetUsageInput{})
	require.NoError(t, err)

	assert.Equal(t, "unlimited", out.Body.Plan)
	assert.Equal(t, 0, out.Body.Basic.Used)
	assert.Nil(t, out.Body.Basic.Limit)
	assert.Nil(t, out.Body.Advanced.Remaining)
}

func TestUsageService_GetUsage_Unauthenticated(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	service := NewUsageService(tracker)

	_, err := service.GetUsage(context.Background(), &GetUsageInput{})
	require.Error(t, err)
	assert.Equal(t, 401, statusOf(t, err))
}

func TestUsageService_GetUsage_StoreError(t *testing.T) {
	tracker := usage.NewTracker(failingCounterStore{})
	service := NewUsageService(tracker)

	ctx := authedContext("user-1", usage.PlanFree)
	_, err := service.GetUsage(ctx, &GetUsageInput{})
	require.Error(t, err)
	assert.Equal(t, 503, statusOf(t, err))
}
