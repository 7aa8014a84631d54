package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailforge/mailforge-cloud/internal/auth"
	"github.com/mailforge/mailforge-cloud/internal/usage"
)

func authedContext(userID string, plan usage.PlanType) context.Context {
	ctx := WithPrincipal(context.Background(), &auth.Principal{UserID: userID})
	return WithUserPlan(ctx, plan)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func TestMailService_CreateDraft_Success(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	generator := &stubGenerator{}
	service := NewMailService(tracker, generator)

	ctx := authedContext("user-1", usage.PlanFree)
	out, err := service.CreateDraft(ctx, &CreateDraftInput{
		Body: DraftRequest{Instructions: "thank the team for shipping"},
	})
	require.NoError(t, err)

	assert.Equal(t, "generated by "+DefaultModel, out.Body.Text)
	assert.Equal(t, DefaultModel, out.Body.Model)
	assert.Equal(t, "basic", out.Body.Usage.Tier)
	assert.Equal(t, "free", out.Body.Usage.Plan)
	require.NotNil(t, out.Body.Usage.Remaining)
	assert.Equal(t, 19, *out.Body.Usage.Remaining)
	assert.Equal(t, 1, generator.callCount())
}

func TestMailService_CreateReply_Success(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	service := NewMailService(tracker, &stubGenerator{})

	ctx := authedContext("user-1", usage.PlanPro)
	out, err := service.CreateReply(ctx, &CreateReplyInput{
		Body: ReplyRequest{Model: "gpt-4o", Thread: "From: alice\nCan you review?", Tone: "formal"},
	})
	require.NoError(t, err)

	assert.Equal(t, "advanced", out.Body.Usage.Tier)
	require.NotNil(t, out.Body.Usage.Remaining)
	assert.Equal(t, 499, *out.Body.Usage.Remaining)
}

func TestMailService_SummarizeThread_Success(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	service := NewMailService(tracker, &stubGenerator{})

	ctx := authedContext("user-1", usage.PlanUnlimited)
	out, err := service.SummarizeThread(ctx, &SummarizeThreadInput{
		Body: SummarizeRequest{Thread: "long thread text"},
	})
	require.NoError(t, err)

	assert.Nil(t, out.Body.Usage.Limit)
	assert.Nil(t, out.Body.Usage.Remaining)
}

func TestMailService_Unauthenticated(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	generator := &stubGenerator{}
	service := NewMailService(tracker, generator)

	_, err := service.CreateDraft(context.Background(), &CreateDraftInput{
		Body: DraftRequest{Instructions: "hello"},
	})
	require.Error(t, err)
	assert.Equal(t, 401, statusOf(t, err))
	assert.Equal(t, 0, generator.callCount())
}

func TestMailService_QuotaExceeded(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	generator := &stubGenerator{}
	service := NewMailService(tracker, generator)

	// Free plan has no advanced allowance at all.
	ctx := authedContext("user-1", usage.PlanFree)
	_, err := service.CreateDraft(ctx, &CreateDraftInput{
		Body: DraftRequest{Model: "gpt-4o", Instructions: "hello"},
	})
	require.Error(t, err)
	assert.Equal(t, 429, statusOf(t, err))

	// The provider must not be called for a rejected request.
	assert.Equal(t, 0, generator.callCount())
}

func TestMailService_QuotaExhaustion(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	service := NewMailService(tracker, &stubGenerator{})

	ctx := authedContext("user-1", usage.PlanFree)
	input := &CreateDraftInput{Body: DraftRequest{Instructions: "hello"}}

	for i := 0; i < 20; i++ {
		_, err := service.CreateDraft(ctx, input)
		require.NoError(t, err, "request %d should be within quota", i+1)
	}

	_, err := service.CreateDraft(ctx, input)
	require.Error(t, err)
	assert.Equal(t, 429, statusOf(t, err))
}

func TestMailService_ProviderFailureRollsBack(t *testing.T) {
	tracker := usage.NewTracker(usage.NewMemStore())
	generator := &stubGenerator{err: errors.New("provider down")}
	service := NewMailService(tracker, generator)

	ctx := authedContext("user-1", usage.PlanFree)
	_, err := service.CreateDraft(ctx, &CreateDraftInput{
		Body: DraftRequest{Instructions: "hello"},
	})
	require.Error(t, err)
	assert.Equal(t, 502, statusOf(t, err))

	// The charge was refunded, so the full allowance is still there.
	summary, err := tracker.GetSummary(ctx, "user-1", usage.PlanFree, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Basic.Used)
}

func TestMailService_MeterFailureBlocksRequest(t *testing.T) {
	tracker := usage.NewTracker(failingCounterStore{})
	generator := &stubGenerator{}
	service := NewMailService(tracker, generator)

	ctx := authedContext("user-1", usage.PlanFree)
	_, err := service.CreateDraft(ctx, &CreateDraftInput{
		Body: DraftRequest{Instructions: "hello"},
	})
	require.Error(t, err)
	assert.Equal(t, 503, statusOf(t, err))
	assert.Equal(t, 0, generator.callCount())
}

// failingCounterStore simulates an unavailable metering store.
type failingCounterStore struct{}

func (failingCounterStore) Get(ctx context.Context, userID, periodKey string) (*usage.Counter, error) {
	return nil, errors.New("store unavailable")
}

func (failingCounterStore) Update(ctx context.Context, userID, periodKey string, fn func(context.Context, usage.CounterTx) error) error {
	return errors.New("store unavailable")
}
