package api

import (
	gocontext "context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/mailforge/mailforge-cloud/internal/auth"
)

// Services holds all the service instances used by the API.
type Services struct {
	Mail     *MailService
	Usage    *UsageService
	Billing  *BillingService
	Verifier *auth.Verifier
	DB       DBClient
}

// RegisterRoutes registers all huma routes with their service handlers.
// It sets up the huma API with OpenAPI documentation and security schemes,
// then registers all endpoints with proper middleware.
func RegisterRoutes(router *chi.Mux, services *Services, rateLimiter *RateLimiter) huma.API {
	// Set up huma API with OpenAPI config
	config := huma.DefaultConfig("Mailforge Cloud API", "1.0.0")
	config.Info = OpenAPIInfo().Info
	config.Tags = OpenAPIInfo().Tags
	config.Servers = OpenAPIInfo().Servers

	humaAPI := humachi.New(router, config)

	// Initialize security schemes
	if humaAPI.OpenAPI().Components.SecuritySchemes == nil {
		humaAPI.OpenAPI().Components.SecuritySchemes = make(map[string]*huma.SecurityScheme)
	}
	for name, scheme := range SecuritySchemes() {
		humaAPI.OpenAPI().Components.SecuritySchemes[name] = scheme
	}

	// Register OpenAPI spec endpoints (unauthenticated)
	router.Get("/openapi.json", handleOpenAPIJSON(humaAPI))
	router.Get("/openapi.yaml", handleOpenAPIYAML(humaAPI))

	// Health check (no auth, no rate limit)
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status. Does not require authentication.",
		Tags:        []string{"Health"},
	}, func(ctx gocontext.Context, input *HealthCheckInput) (*HealthCheckOutput, error) {
		// When DB is nil, we're in spec-generation mode - return success for type extraction
		if services.DB != nil {
			if err := services.DB.Health(ctx); err != nil {
				return nil, huma.Error503ServiceUnavailable(fmt.Sprintf("database health check failed: %v", err))
			}
		}
		return &HealthCheckOutput{
			Body: struct {
				Status string `json:"status" doc:"Health status" example:"ok"`
			}{Status: "ok"},
		}, nil
	})

	// Stripe webhook is registered via chi directly because signature
	// verification needs the raw request body, which huma consumes.
	if services.Billing != nil {
		router.With(rateLimiter.IPMiddleware()).Post("/v1/billing/webhook", services.Billing.HandleWebhook)
	}

	// Authenticated endpoints
	registerAuthenticatedRoutes(humaAPI, services, rateLimiter)

	return humaAPI
}

// registerAuthenticatedRoutes registers endpoints that require authentication.
func registerAuthenticatedRoutes(humaAPI huma.API, services *Services, rateLimiter *RateLimiter) {
	authMiddleware := humaAuthMiddleware(services.Verifier, services.DB)
	userLimit := rateLimiter.UserMiddleware()

	securityRequirement := []map[string][]string{{"bearerAuth": {}}}

	// Generation operations
	huma.Register(humaAPI, huma.Operation{
		OperationID:   "createDraft",
		Method:        "POST",
		Path:          "/v1/drafts",
		Summary:       "Draft a new email",
		Description:   "Generate a complete email from instructions. Counts one request against the monthly quota of the tier the chosen model belongs to.",
		Tags:          []string{"Generation"},
		Security:      securityRequirement,
		DefaultStatus: 201,
		Middlewares:   huma.Middlewares{authMiddleware, userLimit},
	}, services.Mail.CreateDraft)

	huma.Register(humaAPI, huma.Operation{
		OperationID:   "createReply",
		Method:        "POST",
		Path:          "/v1/drafts/reply",
		Summary:       "Draft a reply",
		Description:   "Generate a reply to an existing email thread. Counts one request against the monthly quota.",
		Tags:          []string{"Generation"},
		Security:      securityRequirement,
		DefaultStatus: 201,
		Middlewares:   huma.Middlewares{authMiddleware, userLimit},
	}, services.Mail.CreateReply)

	huma.Register(humaAPI, huma.Operation{
		OperationID: "summarizeThread",
		Method:      "POST",
		Path:        "/v1/threads/summarize",
		Summary:     "Summarize a thread",
		Description: "Produce a short summary of an email thread. Counts one request against the monthly quota.",
		Tags:        []string{"Generation"},
		Security:    securityRequirement,
		Middlewares: huma.Middlewares{authMiddleware, userLimit},
	}, services.Mail.SummarizeThread)

	// Usage operations
	huma.Register(humaAPI, huma.Operation{
		OperationID: "getUsage",
		Method:      "GET",
		Path:        "/v1/usage",
		Summary:     "Get usage summary",
		Description: "Returns consumption against the monthly plan limits for the current billing period. Reading usage never creates a counter.",
		Tags:        []string{"Usage"},
		Security:    securityRequirement,
		Middlewares: huma.Middlewares{authMiddleware, userLimit},
	}, services.Usage.GetUsage)
}

// humaAuthMiddleware creates a huma middleware that verifies the JWT
// bearer token and sets the principal and plan in the context.
func humaAuthMiddleware(verifier *auth.Verifier, dbClient DBClient) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		authHeader := ctx.Header("Authorization")
		if authHeader == "" {
			writeHumaUnauthorized(ctx, "missing authorization header")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			writeHumaUnauthorized(ctx, "invalid authorization header format")
			return
		}
		token := strings.TrimPrefix(authHeader, bearerPrefix)

		principal, err := verifier.Verify(token)
		if err != nil {
			writeHumaUnauthorized(ctx, "invalid token")
			return
		}

		plan, err := loadPlan(ctx.Context(), dbClient, principal.UserID)
		if err != nil {
			slog.Error("failed to load user plan", "error", err, "user_id", principal.UserID)
			ctx.SetStatus(http.StatusInternalServerError)
			ctx.SetHeader("Content-Type", "application/json")
			_, _ = ctx.BodyWriter().Write([]byte(`{"error":"internal server error"}`))
			return
		}

		newCtx := WithPrincipal(ctx.Context(), principal)
		newCtx = WithUserPlan(newCtx, plan)

		recordUserSeen(dbClient, principal)

		// Create a new context wrapper with the updated context
		next(&humaContextWrapper{inner: ctx, overrideCtx: newCtx})
	}
}

// writeHumaUnauthorized writes a 401 Unauthorized response for huma middleware.
func writeHumaUnauthorized(ctx huma.Context, msg string) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	_, _ = ctx.BodyWriter().Write([]byte(fmt.Sprintf(`{"error":"%s"}`, msg)))
}

// humaContextWrapper wraps a huma.Context with a custom gocontext.Context.
type humaContextWrapper struct {
	inner       huma.Context
	overrideCtx gocontext.Context //nolint:containedctx // Required to override embedded huma.Context
}

// Implement all huma.Context methods by delegating to inner, except Context()
func (c *humaContextWrapper) Context() gocontext.Context             { return c.overrideCtx }
func (c *humaContextWrapper) Operation() *huma.Operation             { return c.inner.Operation() }
func (c *humaContextWrapper) TLS() *tls.ConnectionState              { return c.inner.TLS() }
func (c *humaContextWrapper) Version() huma.ProtoVersion             { return c.inner.Version() }
func (c *humaContextWrapper) Method() string                         { return c.inner.Method() }
func (c *humaContextWrapper) Host() string                           { return c.inner.Host() }
func (c *humaContextWrapper) RemoteAddr() string                     { return c.inner.RemoteAddr() }
func (c *humaContextWrapper) URL() url.URL                           { return c.inner.URL() }
func (c *humaContextWrapper) Param(name string) string               { return c.inner.Param(name) }
func (c *humaContextWrapper) Query(name string) string               { return c.inner.Query(name) }
func (c *humaContextWrapper) Header(name string) string              { return c.inner.Header(name) }
func (c *humaContextWrapper) EachHeader(cb func(name, value string)) { c.inner.EachHeader(cb) }
func (c *humaContextWrapper) BodyReader() io.Reader                  { return c.inner.BodyReader() }
func (c *humaContextWrapper) GetMultipartForm() (*multipart.Form, error) {
	return c.inner.GetMultipartForm()
}
func (c *humaContextWrapper) SetReadDeadline(t time.Time) error { return c.inner.SetReadDeadline(t) }
func (c *humaContextWrapper) SetStatus(code int)                { c.inner.SetStatus(code) }
func (c *humaContextWrapper) Status() int                       { return c.inner.Status() }
func (c *humaContextWrapper) SetHeader(name, value string)      { c.inner.SetHeader(name, value) }
func (c *humaContextWrapper) AppendHeader(name, value string)   { c.inner.AppendHeader(name, value) }
func (c *humaContextWrapper) BodyWriter() io.Writer             { return c.inner.BodyWriter() }
