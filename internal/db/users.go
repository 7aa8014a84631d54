package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// userColumns is the list of columns to select for user queries
const userColumns = `id, email, plan, stripe_customer_id, created_at, updated_at, last_seen_at`

// scanUser scans a database row into a User struct
func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.Plan, &u.StripeCustomerID,
		&u.CreatedAt, &u.UpdatedAt, &u.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by ID.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE id = $1
	`, userColumns)

	user, err := scanUser(c.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserPlan returns the stored plan string for a user. An unknown
// user yields the empty string, which upstream resolution degrades to
// the free plan.
func (c *Client) GetUserPlan(ctx context.Context, id string) (string, error) {
	var plan string
	err := c.pool.QueryRow(ctx, `SELECT plan FROM users WHERE id = $1`, id).Scan(&plan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get user plan: %w", err)
	}
	return plan, nil
}

// UpsertUser creates a user on first sight or refreshes email and
// last_seen_at on subsequent requests. The plan is only set on insert;
// plan changes go through SetUserPlan so a stale token cannot
// downgrade a paying user.
func (c *Client) UpsertUser(ctx context.Context, id string, email *string) error {
	query := `
		INSERT INTO users (id, email, plan, created_at, updated_at, last_seen_at)
		VALUES ($1, $2, 'free', NOW(), NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = COALESCE(EXCLUDED.email, users.email),
			last_seen_at = NOW()
	`

	if _, err := c.pool.Exec(ctx, query, id, email); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SetUserPlan updates a user's plan and remembers the Stripe customer
// that paid for it.
func (c *Client) SetUserPlan(ctx context.Context, id, plan string, stripeCustomerID *string) error {
	query := `
		UPDATE users
		SET plan = $2,
		    stripe_customer_id = COALESCE($3, stripe_customer_id),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := c.pool.Exec(ctx, query, id, plan, stripeCustomerID)
	if err != nil {
		return fmt.Errorf("failed to set user plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetUserByStripeCustomer retrieves the user linked to a Stripe
// customer ID. Used by the billing webhook to map payment events back
// to accounts.
func (c *Client) GetUserByStripeCustomer(ctx context.Context, customerID string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE stripe_customer_id = $1
	`, userColumns)

	user, err := scanUser(c.pool.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by stripe customer: %w", err)
	}

	return user, nil
}

// LinkStripeCustomer associates a Stripe customer ID with a user.
func (c *Client) LinkStripeCustomer(ctx context.Context, userID, customerID string) error {
	query := `
		UPDATE users
		SET stripe_customer_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := c.pool.Exec(ctx, query, userID, customerID)
	if err != nil {
		return fmt.Errorf("failed to link stripe customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
