// Package api provides HTTP API types for mailforge-cloud
package api

// DraftRequest defines the request body for POST /v1/drafts
type DraftRequest struct {
	Model        string   `json:"model,omitempty" doc:"Model to generate with" example:"gpt-4o-mini"`
	Instructions string   `json:"instructions" doc:"What the email should say" minLength:"1"`
	Tone         string   `json:"tone,omitempty" doc:"Desired tone" example:"friendly"`
	Recipients   []string `json:"recipients,omitempty" doc:"Recipient addresses, used for salutation context"`
}

// ReplyRequest defines the request body for POST /v1/drafts/reply
type ReplyRequest struct {
	Model        string `json:"model,omitempty" doc:"Model to generate with" example:"gpt-4o-mini"`
	Thread       string `json:"thread" doc:"The email thread being replied to" minLength:"1"`
	Instructions string `json:"instructions,omitempty" doc:"Guidance for the reply"`
	Tone         string `json:"tone,omitempty" doc:"Desired tone" example:"formal"`
}

// SummarizeRequest defines the request body for POST /v1/threads/summarize
type SummarizeRequest struct {
	Model  string `json:"model,omitempty" doc:"Model to summarize with" example:"gpt-4o-mini"`
	Thread string `json:"thread" doc:"The email thread to summarize" minLength:"1"`
}

// GenerationResponse defines the response body for all generation endpoints
type GenerationResponse struct {
	ID    string        `json:"id" doc:"Opaque identifier for this generation" example:"gen_6d6f...e2"`
	Text  string        `json:"text" doc:"Generated text"`
	Model string        `json:"model" doc:"Model that produced the text"`
	Usage RequestCharge `json:"usage" doc:"Quota charge for this request"`
}

// RequestCharge reports how the request was billed against the
// caller's monthly quota.
type RequestCharge struct {
	Tier      string `json:"tier" doc:"Billing tier the model resolved to" enum:"basic,advanced"`
	Plan      string `json:"plan" doc:"Subscription plan" enum:"free,pro,unlimited"`
	Limit     *int   `json:"limit" doc:"Monthly limit for the tier, null when unlimited"`
	Remaining *int   `json:"remaining" doc:"Requests left this month, null when unlimited"`
	ResetsOn  string `json:"resetsOn" doc:"When the quota next resets, RFC 3339"`
}

// TierUsageResponse is the per-tier block in UsageResponse
type TierUsageResponse struct {
	Used      int  `json:"used" doc:"Requests consumed this month"`
	Limit     *int `json:"limit" doc:"Monthly limit, null when unlimited"`
	Remaining *int `json:"remaining" doc:"Requests left, null when unlimited"`
}

// UsageResponse defines the response body for GET /v1/usage
type UsageResponse struct {
	Plan            string            `json:"plan" doc:"Subscription plan" enum:"free,pro,unlimited"`
	Period          string            `json:"period" doc:"Billing period key" example:"2026-08"`
	Basic           TierUsageResponse `json:"basic"`
	Advanced        TierUsageResponse `json:"advanced"`
	ResetsOn        string            `json:"resetsOn" doc:"When the quota next resets, RFC 3339"`
	LastResetAt     *string           `json:"lastResetAt,omitempty" doc:"When the counter was last zeroed"`
	LastResetReason string            `json:"lastResetReason,omitempty" doc:"Why the counter was last zeroed" enum:"monthly,subscription"`
}

// WebhookResponse defines the response body for POST /v1/billing/webhook
type WebhookResponse struct {
	Received bool `json:"received"`
}
