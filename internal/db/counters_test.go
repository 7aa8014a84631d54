//go:build integration

package db

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mailforge/mailforge-cloud/internal/usage"
)

func getTestDB(t *testing.T) *Client {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	ctx := context.Background()
	client, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := client.RunMigrations(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func testUserID() string {
	return fmt.Sprintf("test|%s", uuid.New().String()[:8])
}

func cleanupCounters(t *testing.T, client *Client, ctx context.Context, userID string) {
	if _, err := client.pool.Exec(ctx, "DELETE FROM usage_counters WHERE user_id = $1", userID); err != nil {
		t.Logf("warning: failed to cleanup test counters: %v", err)
	}
	if _, err := client.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID); err != nil {
		t.Logf("warning: failed to cleanup test user: %v", err)
	}
}

func TestCounterStoreGetMissing(t *testing.T) {
	client := getTestDB(t)
	ctx := context.Background()
	store := NewCounterStore(client)

	counter, err := store.Get(ctx, testUserID(), "2024-01")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if counter != nil {
		t.Errorf("expected nil for missing counter, got %+v", counter)
	}
}

func TestCounterStoreUpdateRoundTrip(t *testing.T) {
	client := getTestDB(t)
	ctx := context.Background()
	store := NewCounterStore(client)

	userID := testUserID()
	defer cleanupCounters(t, client, ctx, userID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	err := store.Update(ctx, userID, "2024-03", func(ctx context.Context, tx usage.CounterTx) error {
		counter, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		if counter != nil {
			t.Errorf("expected no counter on first update, got %+v", counter)
		}
		return tx.Set(ctx, &usage.Counter{
			UserID:        userID,
			PeriodKey:     "2024-03",
			PlanType:      usage.PlanPro,
			BasicCount:    3,
			AdvancedCount: 1,
			UpdatedAt:     now,
		})
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Get(ctx, userID, "2024-03")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("counter not persisted")
	}
	if got.BasicCount != 3 || got.AdvancedCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1", got.BasicCount, got.AdvancedCount)
	}
	if got.PlanType != usage.PlanPro {
		t.Errorf("planType = %s, want pro", got.PlanType)
	}
	if got.LastResetAt != nil || got.LastResetReason != "" {
		t.Errorf("reset fields should be empty, got %v / %q", got.LastResetAt, got.LastResetReason)
	}
}

func TestCounterStoreUpdateRollsBackOnError(t *testing.T) {
	client := getTestDB(t)
	ctx := context.Background()
	store := NewCounterStore(client)

	userID := testUserID()
	defer cleanupCounters(t, client, ctx, userID)

	err := store.Update(ctx, userID, "2024-03", func(ctx context.Context, tx usage.CounterTx) error {
		if err := tx.Set(ctx, &usage.Counter{
			UserID:     userID,
			PeriodKey:  "2024-03",
			PlanType:   usage.PlanFree,
			BasicCount: 1,
			UpdatedAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}
		return fmt.Errorf("transaction body failed")
	})
	if err == nil {
		t.Fatal("expected error from failing transaction body")
	}

	got, err := store.Get(ctx, userID, "2024-03")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("write should have rolled back, got %+v", got)
	}
}

func TestCounterStoreSerializesConcurrentUpdates(t *testing.T) {
	client := getTestDB(t)
	ctx := context.Background()
	store := NewCounterStore(client)
	tracker := usage.NewTracker(store)

	userID := testUserID()
	defer cleanupCounters(t, client, ctx, userID)

	// Free basic limit is 20; 40 racing consumptions must admit
	// exactly 20.
	const callers = 40
	now := time.Now().UTC()

	var wg sync.WaitGroup
	allowed := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := tracker.Consume(ctx, userID, usage.PlanFree, "gpt-4o-mini", now)
			if err != nil {
				t.Errorf("Consume failed: %v", err)
				return
			}
			allowed <- res.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 20 {
		t.Errorf("allowed = %d, want exactly 20", count)
	}

	got, err := store.Get(ctx, userID, usage.PeriodKey(now))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.BasicCount != 20 {
		t.Errorf("stored basicCount = %d, want 20", got.BasicCount)
	}
}
