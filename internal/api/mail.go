package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/mailforge/mailforge-cloud/internal/llm"
	"github.com/mailforge/mailforge-cloud/internal/usage"
)

// DefaultModel is used when a generation request does not name a model.
const DefaultModel = "gpt-4o-mini"

// Generator is the text-generation capability the mail service bills
// against. *llm.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Result, error)
}

// MailService handles the metered generation endpoints: drafting,
// replying, and summarizing.
type MailService struct {
	tracker *usage.Tracker
	llm     Generator
}

// NewMailService creates a new MailService.
func NewMailService(tracker *usage.Tracker, generator Generator) *MailService {
	return &MailService{tracker: tracker, llm: generator}
}

// CreateDraft handles POST /v1/drafts
// Drafts a new email from the caller's instructions.
func (m *MailService) CreateDraft(ctx context.Context, input *CreateDraftInput) (*CreateDraftOutput, error) {
	system := "You draft complete, well-structured emails. Output only the email text, starting with the subject line."
	prompt := buildDraftPrompt(input.Body)

	result, charge, err := m.generate(ctx, input.Body.Model, system, prompt)
	if err != nil {
		return nil, err
	}

	return &CreateDraftOutput{
		Body: GenerationResponse{
			ID:    newGenerationID(),
			Text:  result.Text,
			Model: result.Model,
			Usage: *charge,
		},
	}, nil
}

// CreateReply handles POST /v1/drafts/reply
// Drafts a reply to an existing email thread.
func (m *MailService) CreateReply(ctx context.Context, input *CreateReplyInput) (*CreateReplyOutput, error) {
	system := "You draft replies to email threads. Match the register of the thread. Output only the reply text."
	prompt := buildReplyPrompt(input.Body)

	result, charge, err := m.generate(ctx, input.Body.Model, system, prompt)
	if err != nil {
		return nil, err
	}

	return &CreateReplyOutput{
		Body: GenerationResponse{
			ID:    newGenerationID(),
			Text:  result.Text,
			Model: result.Model,
			Usage: *charge,
		},
	}, nil
}

// SummarizeThread handles POST /v1/threads/summarize
// Produces a short summary of an email thread.
func (m *MailService) SummarizeThread(ctx context.Context, input *SummarizeThreadInput) (*SummarizeThreadOutput, error) {
	system := "You summarize email threads. Produce a short summary covering the key points, decisions, and any action items."
	prompt := "Summarize this email thread:\n\n" + input.Body.Thread

	result, charge, err := m.generate(ctx, input.Body.Model, system, prompt)
	if err != nil {
		return nil, err
	}

	return &SummarizeThreadOutput{
		Body: GenerationResponse{
			ID:    newGenerationID(),
			Text:  result.Text,
			Model: result.Model,
			Usage: *charge,
		},
	}, nil
}

// generate runs the shared metering flow: charge the quota, call the
// provider, and refund the charge if the provider fails. A metering
// store failure blocks the request rather than letting it through
// unbilled.
func (m *MailService) generate(ctx context.Context, model, system, prompt string) (*llm.Result, *RequestCharge, error) {
	principal, ok := GetPrincipal(ctx)
	if !ok {
		return nil, nil, huma.Error401Unauthorized("unauthorized")
	}
	plan, ok := GetUserPlan(ctx)
	if !ok {
		plan = usage.PlanFree
	}

	if model == "" {
		model = DefaultModel
	}

	now := time.Now().UTC()

	consumed, err := m.tracker.Consume(ctx, principal.UserID, plan, model, now)
	if err != nil {
		slog.Error("usage consume failed", "error", err, "user_id", principal.UserID, "model", model)
		return nil, nil, huma.Error503ServiceUnavailable("usage metering unavailable")
	}

	if !consumed.Allowed {
		limit := 0
		if consumed.Limit != nil {
			limit = *consumed.Limit
		}
		return nil, nil, huma.Error429TooManyRequests(fmt.Sprintf(
			"monthly %s quota exhausted for plan %s (limit %d), resets %s",
			consumed.Tier, consumed.PlanType, limit, consumed.ResetsOn.Format(time.RFC3339)))
	}

	result, err := m.llm.Generate(ctx, llm.Request{
		Model:  model,
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		// No billable work delivered, so refund the charge. The
		// refund is best effort; losing it costs the user one
		// request, never a double charge.
		if rbErr := m.tracker.Rollback(ctx, principal.UserID, model, now); rbErr != nil {
			slog.Warn("usage rollback failed", "error", rbErr, "user_id", principal.UserID, "model", model)
		}
		slog.Error("generation failed", "error", err, "user_id", principal.UserID, "model", model)
		return nil, nil, huma.Error502BadGateway("model provider request failed")
	}

	return result, chargeFromResult(consumed), nil
}

// newGenerationID mints the identifier clients use to reference a
// generation in logs and support requests.
func newGenerationID() string {
	return "gen_" + uuid.NewString()
}

func chargeFromResult(r *usage.ConsumeResult) *RequestCharge {
	return &RequestCharge{
		Tier:      string(r.Tier),
		Plan:      string(r.PlanType),
		Limit:     r.Limit,
		Remaining: r.Remaining,
		ResetsOn:  r.ResetsOn.Format(time.RFC3339),
	}
}

func buildDraftPrompt(req DraftRequest) string {
	var b strings.Builder
	b.WriteString("Write an email with these instructions:\n")
	b.WriteString(req.Instructions)
	if req.Tone != "" {
		b.WriteString("\n\nTone: ")
		b.WriteString(req.Tone)
	}
	if len(req.Recipients) > 0 {
		b.WriteString("\n\nRecipients: ")
		b.WriteString(strings.Join(req.Recipients, ", "))
	}
	return b.String()
}

func buildReplyPrompt(req ReplyRequest) string {
	var b strings.Builder
	b.WriteString("Write a reply to this email thread:\n\n")
	b.WriteString(req.Thread)
	if req.Instructions != "" {
		b.WriteString("\n\nThe reply should: ")
		b.WriteString(req.Instructions)
	}
	if req.Tone != "" {
		b.WriteString("\n\nTone: ")
		b.WriteString(req.Tone)
	}
	return b.String()
}
