package usage

import "context"

// CounterTx gives a transaction body get/set access to the single
// counter record it is scoped to.
type CounterTx interface {
	// Get returns the counter, or nil if no record exists yet.
	Get(ctx context.Context) (*Counter, error)
	// Set upserts the counter within the transaction.
	Set(ctx context.Context, c *Counter) error
}

// CounterStore is the persistence contract for usage counters.
//
// Update must run fn inside a transaction that serializes concurrent
// read-modify-write cycles on the same (userID, periodKey): two racing
// Update calls for the same key must not interleave between Get and
// Set. Across different keys there is no ordering requirement.
type CounterStore interface {
	// Get is a read-only load outside any transaction.
	// Returns nil (not an error) when no counter exists.
	Get(ctx context.Context, userID, periodKey string) (*Counter, error)

	// Update runs fn transactionally against the counter for
	// (userID, periodKey). If fn returns an error the transaction is
	// rolled back and the error is returned unchanged.
	Update(ctx context.Context, userID, periodKey string, fn func(ctx context.Context, tx CounterTx) error) error
}
