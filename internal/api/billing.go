package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/mailforge/mailforge-cloud/internal/usage"
)

// maxWebhookBody bounds the webhook payload we are willing to read.
const maxWebhookBody = 65536

// BillingService processes Stripe webhook events and keeps the stored
// plan plus the usage counters in sync with the subscription state.
type BillingService struct {
	db            DBClient
	tracker       *usage.Tracker
	webhookSecret string
	pricePlans    map[string]usage.PlanType
}

// NewBillingService creates a new BillingService. pricePlans maps
// Stripe price IDs to the plan they purchase.
func NewBillingService(db DBClient, tracker *usage.Tracker, webhookSecret string, pricePlans map[string]usage.PlanType) *BillingService {
	return &BillingService{
		db:            db,
		tracker:       tracker,
		webhookSecret: webhookSecret,
		pricePlans:    pricePlans,
	}
}

// HandleWebhook handles POST /v1/billing/webhook
// Registered as a plain chi handler because Stripe signature
// verification needs the raw request body.
func (b *BillingService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		WriteError(w, fmt.Errorf("%w: unreadable payload", ErrBadRequest), http.StatusBadRequest, CodeBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), b.webhookSecret)
	if err != nil {
		slog.Warn("webhook signature verification failed", "error", err)
		WriteError(w, ErrBadRequest, http.StatusBadRequest, CodeBadRequest)
		return
	}

	if err := b.processEvent(r.Context(), event); err != nil {
		// Non-2xx makes Stripe retry the delivery later.
		slog.Error("webhook processing failed", "error", err, "event_type", event.Type, "event_id", event.ID)
		WriteError(w, ErrInternal, http.StatusInternalServerError, CodeInternal)
		return
	}

	_ = WriteJSON(w, WebhookResponse{Received: true}, http.StatusOK)
}

func (b *BillingService) processEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return b.handleCheckoutCompleted(ctx, &session)

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return b.applyPlan(ctx, sub.Customer, b.planForSubscription(&sub))

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return b.applyPlan(ctx, sub.Customer, usage.PlanFree)

	default:
		slog.Debug("ignoring webhook event", "event_type", event.Type)
		return nil
	}
}

// handleCheckoutCompleted links the Stripe customer to the user who
// started the checkout. The client reference ID is set to the user ID
// when the checkout session is created.
func (b *BillingService) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	if session.ClientReferenceID == "" || session.Customer == nil {
		slog.Warn("checkout session missing user or customer", "session_id", session.ID)
		return nil
	}
	if err := b.db.LinkStripeCustomer(ctx, session.ClientReferenceID, session.Customer.ID); err != nil {
		return fmt.Errorf("link stripe customer: %w", err)
	}
	return nil
}

// applyPlan stores the new plan and zeroes the current period's
// counters so the user starts the new plan with a clean slate.
func (b *BillingService) applyPlan(ctx context.Context, customer *stripe.Customer, plan usage.PlanType) error {
	if customer == nil {
		return fmt.Errorf("subscription event has no customer")
	}

	user, err := b.db.GetUserByStripeCustomer(ctx, customer.ID)
	if err != nil {
		return fmt.Errorf("resolve user for customer %s: %w", customer.ID, err)
	}

	if usage.ResolvePlanType(user.Plan) == plan {
		return nil
	}

	customerID := customer.ID
	if err := b.db.SetUserPlan(ctx, user.ID, string(plan), &customerID); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}

	if err := b.tracker.Reset(ctx, user.ID, plan, usage.ResetSubscription, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset counters: %w", err)
	}

	slog.Info("plan changed", "user_id", user.ID, "plan", plan)
	return nil
}

// planForSubscription maps the subscription's price to a plan. An
// unrecognized or inactive subscription falls back to the free plan.
func (b *BillingService) planForSubscription(sub *stripe.Subscription) usage.PlanType {
	if sub.Status != stripe.SubscriptionStatusActive && sub.Status != stripe.SubscriptionStatusTrialing {
		return usage.PlanFree
	}
	if sub.Items == nil {
		return usage.PlanFree
	}
	for _, item := range sub.Items.Data {
		if item.Price == nil {
			continue
		}
		if plan, ok := b.pricePlans[item.Price.ID]; ok {
			return plan
		}
	}
	slog.Warn("subscription price not mapped to a plan", "subscription_id", sub.ID)
	return usage.PlanFree
}
