// Package api provides the HTTP surface for mailforge-cloud.
//
// Every generation endpoint is metered: the handler charges the
// caller's monthly quota before contacting a model provider, and
// refunds the charge if the provider fails. The quota semantics live
// in the usage package; this package only translates between HTTP and
// those semantics.
//
// # Endpoints
//
// Generation (authenticated, metered):
//   - DraftRequest/GenerationResponse - POST /v1/drafts
//   - ReplyRequest/GenerationResponse - POST /v1/drafts/reply
//   - SummarizeRequest/GenerationResponse - POST /v1/threads/summarize
//
// Usage (authenticated, read-only):
//   - UsageResponse - GET /v1/usage
//
// Billing (Stripe signature, not bearer auth):
//   - POST /v1/billing/webhook
//
// # Error Handling
//
// The package provides standard error types and helper functions:
//   - WriteError - Write a JSON error response
//   - WriteJSON - Write a JSON success response
//   - WriteErrorFromStandard - Map standard errors to HTTP responses
//
// Standard errors:
//   - ErrUnauthorized (401 UNAUTHORIZED)
//   - ErrBadRequest (400 BAD_REQUEST)
//   - ErrQuotaExceeded (429 QUOTA_EXCEEDED)
//   - ErrMeterUnavailable (503 UNAVAILABLE)
//   - ErrProviderFailed (502 UPSTREAM_ERROR)
package api

import "github.com/danielgtaylor/huma/v2"

// OpenAPIInfo returns the OpenAPI info configuration for mailforge-cloud.
func OpenAPIInfo() huma.OpenAPI {
	return huma.OpenAPI{
		OpenAPI: "3.1.0",
		Info: &huma.Info{
			Title:       "Mailforge Cloud API",
			Version:     "1.0.0",
			Description: "Email drafting and summarization API.\n\nGenerate drafts, replies, and thread summaries with hosted language models, metered against monthly subscription quotas.",
			Contact: &huma.Contact{
				Name: "Mailforge Cloud",
				URL:  "https://github.com/mailforge/mailforge-cloud",
			},
		},
		Servers: []*huma.Server{
			{
				URL:         "https://api.mailforge.cloud",
				Description: "Production server",
			},
			{
				URL:         "http://localhost:28080",
				Description: "Local development server",
			},
		},
		Tags: []*huma.Tag{
			{
				Name:        "Generation",
				Description: "Draft, reply to, and summarize emails",
			},
			{
				Name:        "Usage",
				Description: "Monthly quota consumption",
			},
			{
				Name:        "Health",
				Description: "Health check endpoints",
			},
		},
	}
}

// SecuritySchemes returns the security scheme definitions.
func SecuritySchemes() map[string]*huma.SecurityScheme {
	return map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "JWT issued by the identity provider. Provide it in the Authorization header as 'Bearer YOUR_TOKEN'.",
		},
	}
}
