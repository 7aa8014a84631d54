package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mailforge/mailforge-cloud/internal/db"
	"github.com/mailforge/mailforge-cloud/internal/llm"
)

// mockDB implements a test double for db.Client
type mockDB struct {
	mu          sync.RWMutex
	users       map[string]*db.User
	healthErr   error
	planErr     error
	upsertCalls map[string]int
}

func newMockDB() *mockDB {
	return &mockDB{
		users:       make(map[string]*db.User),
		upsertCalls: make(map[string]int),
	}
}

func (m *mockDB) addUser(id, plan string) *db.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := &db.User{
		ID:        id,
		Plan:      plan,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.users[id] = user
	return user
}

func (m *mockDB) Health(ctx context.Context) error {
	return m.healthErr
}

func (m *mockDB) GetUser(ctx context.Context, id string) (*db.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	// Return a copy to avoid race conditions
	userCopy := *user
	return &userCopy, nil
}

func (m *mockDB) GetUserPlan(ctx context.Context, id string) (string, error) {
	if m.planErr != nil {
		return "", m.planErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return "", nil
	}
	return user.Plan, nil
}

func (m *mockDB) UpsertUser(ctx context.Context, id string, email *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCalls[id]++
	if user, ok := m.users[id]; ok {
		if email != nil {
			user.Email = email
		}
		return nil
	}
	m.users[id] = &db.User{
		ID:        id,
		Email:     email,
		Plan:      "free",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *mockDB) SetUserPlan(ctx context.Context, id, plan string, stripeCustomerID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return db.ErrUserNotFound
	}
	user.Plan = plan
	if stripeCustomerID != nil {
		user.StripeCustomerID = stripeCustomerID
	}
	return nil
}

func (m *mockDB) GetUserByStripeCustomer(ctx context.Context, customerID string) (*db.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.StripeCustomerID != nil && *user.StripeCustomerID == customerID {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, db.ErrUserNotFound
}

func (m *mockDB) LinkStripeCustomer(ctx context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return db.ErrUserNotFound
	}
	user.StripeCustomerID = &customerID
	return nil
}

// stubGenerator implements Generator with canned responses.
type stubGenerator struct {
	mu     sync.Mutex
	calls  int
	err    error
	result *llm.Result
}

func (g *stubGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.result != nil {
		return g.result, nil
	}
	return &llm.Result{
		Text:         fmt.Sprintf("generated by %s", req.Model),
		Model:        req.Model,
		InputTokens:  10,
		OutputTokens: 20,
	}, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
