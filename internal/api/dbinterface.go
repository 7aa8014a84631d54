package api

import (
	"context"

	"github.com/mailforge/mailforge-cloud/internal/db"
)

// DBClient defines the database operations required by the API handlers
type DBClient interface {
	Health(ctx context.Context) error
	GetUser(ctx context.Context, id string) (*db.User, error)
	GetUserPlan(ctx context.Context, id string) (string, error)
	UpsertUser(ctx context.Context, id string, email *string) error
	SetUserPlan(ctx context.Context, id, plan string, stripeCustomerID *string) error
	GetUserByStripeCustomer(ctx context.Context, customerID string) (*db.User, error)
	LinkStripeCustomer(ctx context.Context, userID, customerID string) error
}

// Ensure *db.Client implements DBClient interface
var _ DBClient = (*db.Client)(nil)
