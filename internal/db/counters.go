package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mailforge/mailforge-cloud/internal/usage"
)

// CounterStore adapts the usage counter persistence contract onto
// Postgres. One row per (user_id, period_key); prior periods are kept
// as historical records and never reaped here.
type CounterStore struct {
	client *Client
}

// NewCounterStore creates a counter store over an existing client.
func NewCounterStore(client *Client) *CounterStore {
	return &CounterStore{client: client}
}

var _ usage.CounterStore = (*CounterStore)(nil)

// counterColumns is the list of columns to select for counter queries
const counterColumns = `user_id, period_key, plan_type, basic_count, advanced_count,
    updated_at, last_reset_at, last_reset_reason`

// scanCounter scans a database row into a usage.Counter
func scanCounter(row interface{ Scan(...any) error }) (*usage.Counter, error) {
	var c usage.Counter
	var resetReason *string
	err := row.Scan(
		&c.UserID, &c.PeriodKey, &c.PlanType, &c.BasicCount,
		&c.AdvancedCount, &c.UpdatedAt, &c.LastResetAt, &resetReason,
	)
	if err != nil {
		return nil, err
	}
	if resetReason != nil {
		c.LastResetReason = usage.ResetReason(*resetReason)
	}
	return &c, nil
}

// Get loads a counter outside any transaction. Returns nil when no
// row exists for the key.
func (s *CounterStore) Get(ctx context.Context, userID, periodKey string) (*usage.Counter, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM usage_counters
		WHERE user_id = $1 AND period_key = $2
	`, counterColumns)

	counter, err := scanCounter(s.client.pool.QueryRow(ctx, query, userID, periodKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage counter: %w", err)
	}
	return counter, nil
}

// Update runs fn inside a transaction holding an advisory lock derived
// from the counter key. The lock serializes every read-modify-write
// cycle on the same (user, period) — including first-write races where
// no row exists yet — and is released automatically at commit or
// rollback.
func (s *CounterStore) Update(ctx context.Context, userID, periodKey string, fn func(ctx context.Context, tx usage.CounterTx) error) error {
	pgTx, err := s.client.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin counter transaction: %w", err)
	}
	defer pgTx.Rollback(ctx) //nolint:errcheck // no-op after commit

	lockQuery := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := pgTx.Exec(ctx, lockQuery, userID+"/"+periodKey); err != nil {
		return fmt.Errorf("failed to lock usage counter: %w", err)
	}

	if err := fn(ctx, &counterTx{tx: pgTx, userID: userID, periodKey: periodKey}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit counter transaction: %w", err)
	}
	return nil
}

// counterTx scopes get/set access to a single counter row within an
// open transaction.
type counterTx struct {
	tx        pgx.Tx
	userID    string
	periodKey string
}

func (t *counterTx) Get(ctx context.Context) (*usage.Counter, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM usage_counters
		WHERE user_id = $1 AND period_key = $2
	`, counterColumns)

	counter, err := scanCounter(t.tx.QueryRow(ctx, query, t.userID, t.periodKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage counter: %w", err)
	}
	return counter, nil
}

func (t *counterTx) Set(ctx context.Context, c *usage.Counter) error {
	var resetReason *string
	if c.LastResetReason != "" {
		reason := string(c.LastResetReason)
		resetReason = &reason
	}

	query := `
		INSERT INTO usage_counters (
			user_id, period_key, plan_type, basic_count, advanced_count,
			updated_at, last_reset_at, last_reset_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, period_key) DO UPDATE SET
			plan_type = EXCLUDED.plan_type,
			basic_count = EXCLUDED.basic_count,
			advanced_count = EXCLUDED.advanced_count,
			updated_at = EXCLUDED.updated_at,
			last_reset_at = EXCLUDED.last_reset_at,
			last_reset_reason = EXCLUDED.last_reset_reason
	`

	_, err := t.tx.Exec(ctx, query,
		t.userID,
		t.periodKey,
		string(c.PlanType),
		c.BasicCount,
		c.AdvancedCount,
		c.UpdatedAt,
		c.LastResetAt,
		resetReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save usage counter: %w", err)
	}
	return nil
}
