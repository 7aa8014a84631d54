package db

import "time"

// User is an account as known to this service. The ID is the subject
// claim from the identity provider's token; the plan string is kept in
// sync by the billing webhook and is resolved to a PlanType at the
// point of use.
type User struct {
	ID               string     `json:"id"`
	Email            *string    `json:"email,omitempty"`
	Plan             string     `json:"plan"` // free|pro|unlimited
	StripeCustomerID *string    `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastSeenAt       *time.Time `json:"last_seen_at,omitempty"`
}
