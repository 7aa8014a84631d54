// Package api defines the huma input/output types for OpenAPI documentation.
package api

// Huma input/output types for API operations.
// These wrap the core types with path parameters, query parameters, and body.

// --- Generation ---

// CreateDraftInput is the input for POST /v1/drafts.
type CreateDraftInput struct {
	Body DraftRequest
}

// CreateDraftOutput is the output for POST /v1/drafts.
type CreateDraftOutput struct {
	Body GenerationResponse
}

// CreateReplyInput is the input for POST /v1/drafts/reply.
type CreateReplyInput struct {
	Body ReplyRequest
}

// CreateReplyOutput is the output for POST /v1/drafts/reply.
type CreateReplyOutput struct {
	Body GenerationResponse
}

// SummarizeThreadInput is the input for POST /v1/threads/summarize.
type SummarizeThreadInput struct {
	Body SummarizeRequest
}

// SummarizeThreadOutput is the output for POST /v1/threads/summarize.
type SummarizeThreadOutput struct {
	Body GenerationResponse
}

// --- Usage ---

// GetUsageInput is the input for GET /v1/usage.
type GetUsageInput struct {
}

// GetUsageOutput is the output for GET /v1/usage.
type GetUsageOutput struct {
	Body UsageResponse
}

// --- Health ---

// HealthCheckInput is the input for GET /health.
type HealthCheckInput struct {
}

// HealthCheckOutput is the output for GET /health.
type HealthCheckOutput struct {
	Body struct {
		Status string `json:"status" doc:"Health status" example:"ok"`
	}
}
