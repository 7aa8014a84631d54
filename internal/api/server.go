package api

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mailforge/mailforge-cloud/internal/auth"
	"github.com/mailforge/mailforge-cloud/internal/db"
	"github.com/mailforge/mailforge-cloud/internal/llm"
	"github.com/mailforge/mailforge-cloud/internal/usage"
)

// Server represents the HTTP server with all dependencies.
type Server struct {
	router   *chi.Mux
	services *Services
	db       *db.Client
	config   *Config
}

// Config holds all configuration for the server.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	OpenAIKey    string
	AnthropicKey string
	GoogleAIKey  string

	StripeWebhookSecret  string
	StripePricePro       string
	StripePriceUnlimited string

	LogLevel string
}

// NewServer creates and configures a new server instance.
// It initializes the database client, usage tracker, LLM client, and
// sets up all routes.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// 1. Create database client
	dbClient, err := db.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}

	if err := dbClient.RunMigrations(context.Background()); err != nil {
		dbClient.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// 2. Create the usage tracker over the Postgres counter store
	tracker := usage.NewTracker(db.NewCounterStore(dbClient))

	// 3. Create token verifier and LLM client
	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		dbClient.Close()
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	llmClient := llm.NewClient(llm.Config{
		OpenAIKey:    cfg.OpenAIKey,
		AnthropicKey: cfg.AnthropicKey,
		GoogleAIKey:  cfg.GoogleAIKey,
	})

	// 4. Create services
	services := &Services{
		Mail:     NewMailService(tracker, llmClient),
		Usage:    NewUsageService(tracker),
		Billing:  NewBillingService(dbClient, tracker, cfg.StripeWebhookSecret, cfg.PricePlans()),
		Verifier: verifier,
		DB:       dbClient,
	}

	// 5. Set up chi router with global middleware
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)

	// 6. Register routes
	RegisterRoutes(router, services, NewRateLimiter())

	return &Server{
		router:   router,
		services: services,
		db:       dbClient,
		config:   cfg,
	}, nil
}

// PricePlans maps the configured Stripe price IDs to plans.
func (c *Config) PricePlans() map[string]usage.PlanType {
	plans := make(map[string]usage.PlanType)
	if c.StripePricePro != "" {
		plans[c.StripePricePro] = usage.PlanPro
	}
	if c.StripePriceUnlimited != "" {
		plans[c.StripePriceUnlimited] = usage.PlanUnlimited
	}
	return plans
}

// Router returns the chi router instance for use with http.Server.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Close gracefully shuts down the server by closing the database connection.
func (s *Server) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}
