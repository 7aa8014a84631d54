package usage

import (
	"context"
	"sync"
)

// MemStore is an in-memory CounterStore used in tests and local
// development. A single mutex serializes every Update, which satisfies
// the per-key transaction contract (coarsely, but correctly).
type MemStore struct {
	mu       sync.Mutex
	counters map[string]*Counter
}

// NewMemStore creates an empty in-memory counter store.
func NewMemStore() *MemStore {
	return &MemStore{counters: make(map[string]*Counter)}
}

func memKey(userID, periodKey string) string {
	return userID + "/" + periodKey
}

// Get returns a copy of the stored counter, or nil if absent.
func (s *MemStore) Get(ctx context.Context, userID, periodKey string) (*Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[memKey(userID, periodKey)]
	if !ok {
		return nil, nil
	}
	cp := *counter
	return &cp, nil
}

// Update runs fn while holding the store lock.
func (s *MemStore) Update(ctx context.Context, userID, periodKey string, fn func(ctx context.Context, tx CounterTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, key: memKey(userID, periodKey)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if tx.pending != nil {
		s.counters[tx.key] = tx.pending
	}
	return nil
}

// memTx buffers the write so a failed transaction body leaves the
// store untouched.
type memTx struct {
	store   *MemStore
	key     string
	pending *Counter
}

func (tx *memTx) Get(ctx context.Context) (*Counter, error) {
	if tx.pending != nil {
		cp := *tx.pending
		return &cp, nil
	}
	counter, ok := tx.store.counters[tx.key]
	if !ok {
		return nil, nil
	}
	cp := *counter
	return &cp, nil
}

func (tx *memTx) Set(ctx context.Context, c *Counter) error {
	cp := *c
	tx.pending = &cp
	return nil
}

var _ CounterStore = (*MemStore)(nil)
