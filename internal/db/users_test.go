//go:build integration

package db

import (
	"context"
	"errors"
	"testing"
)

func TestUpsertAndGetUser(t *testing.T) {
	client := getTestDB(t)
	ctx := context.Background()

	userID := testUserID()
	defer cleanupCounters(t, client, ctx, userID)

	email := "test@example.com"
	if err := client.UpsertUser(ctx, userID, &email); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	user, err := client.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Plan != "free" {
		t.Errorf("plan = %s, want free for new user", user.Plan)
	}
	if user.Email == nil || *user.Email != email {
		t.Errorf("email = %v, want %s", user.Email, email)
	}
}

func TestUpsertUserDoesNotDowngradePlan(t *testing.T) {
	client := getTestDB(t)
	ctx := context.Background()

	userID := testUserID()
	defer cleanupCounters(t, client, ctx, userID)

	if err := client.UpsertUser(ctx, userID, nil); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if err := client.SetUserPlan(ctx, userID, "pro", nil); err != nil {
		t.Fatalf("SetUserPlan failed: %v", err)
	}

	// A later upsert from the auth path must not reset the plan.
	if err := client.UpsertUser(ctx, userID, nil); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	plan, err := client.GetUserPlan(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserPlan failed: %v", err)
	}
	if plan != "pro" {
		t.Errorf("plan = %s after re-upsert, want pro", plan)
	}
}

func TestGetUserPlanUnknownUser(t *testing.T) {
	client := getTestDB(t)

	plan, err := client.GetUserPlan(context.Background(), testUserID())
	if err != nil {
		t.Fatalf("GetUserPlan failed: %v", err)
	}
	if plan != "" {
		t.Errorf("plan = %q for unknown user, want empty string", plan)
	}
}

func TestGetUserByStripeCustomer(t *testing.T) {
	client := getTestDB(t)
	ctx := context.Background()

	userID := testUserID()
	defer cleanupCounters(t, client, ctx, userID)

	if err := client.UpsertUser(ctx, userID, nil); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	customerID := "cus_" + userID[5:]
	if err := client.LinkStripeCustomer(ctx, userID, customerID); err != nil {
		t.Fatalf("LinkStripeCustomer failed: %v", err)
	}

	user, err := client.GetUserByStripeCustomer(ctx, customerID)
	if err != nil {
		t.Fatalf("GetUserByStripeCustomer failed: %v", err)
	}
	if user.ID != userID {
		t.Errorf("got user %s, want %s", user.ID, userID)
	}

	_, err = client.GetUserByStripeCustomer(ctx, "cus_nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
