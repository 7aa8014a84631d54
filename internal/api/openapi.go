package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

// handleOpenAPIJSON serves the OpenAPI spec as JSON.
func handleOpenAPIJSON(api huma.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			http.Error(w, "OpenAPI spec not available", http.StatusServiceUnavailable)
			return
		}
		spec, err := api.OpenAPI().MarshalJSON()
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to generate OpenAPI spec: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(spec)
	}
}

// handleOpenAPIYAML serves the OpenAPI spec as YAML.
func handleOpenAPIYAML(api huma.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			http.Error(w, "OpenAPI spec not available", http.StatusServiceUnavailable)
			return
		}
		spec := api.OpenAPI()
		yamlBytes, err := yaml.Marshal(spec)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to generate OpenAPI spec: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(yamlBytes)
	}
}

// GenerateOpenAPISpec generates the OpenAPI specification without creating a full server.
// This is useful for SDK generation and documentation without requiring database connection.
func GenerateOpenAPISpec() ([]byte, error) {
	router := chi.NewRouter()

	config := huma.DefaultConfig("Mailforge Cloud API", "1.0.0")
	config.Info = OpenAPIInfo().Info
	config.Tags = OpenAPIInfo().Tags
	config.Servers = OpenAPIInfo().Servers

	humaAPI := humachi.New(router, config)

	// Initialize Components.SecuritySchemes if nil
	if humaAPI.OpenAPI().Components.SecuritySchemes == nil {
		humaAPI.OpenAPI().Components.SecuritySchemes = make(map[string]*huma.SecurityScheme)
	}

	// Register security schemes
	for name, scheme := range SecuritySchemes() {
		humaAPI.OpenAPI().Components.SecuritySchemes[name] = scheme
	}

	// Register huma operations for OpenAPI documentation (stub handlers)
	registerOpenAPIStubs(humaAPI)

	return humaAPI.OpenAPI().MarshalJSON()
}

// registerOpenAPIStubs registers API routes with stub handlers for OpenAPI documentation.
// This is used by GenerateOpenAPISpec for SDK generation.
func registerOpenAPIStubs(humaAPI huma.API) {
	securityRequirement := []map[string][]string{{"bearerAuth": {}}}

	// Health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status. Does not require authentication.",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *HealthCheckInput) (*HealthCheckOutput, error) {
		return nil, nil
	})

	// Generation operations
	huma.Register(humaAPI, huma.Operation{
		OperationID:   "createDraft",
		Method:        "POST",
		Path:          "/v1/drafts",
		Summary:       "Draft a new email",
		Description:   "Generate a complete email from instructions. Counts one request against the monthly quota.",
		Tags:          []string{"Generation"},
		Security:      securityRequirement,
		DefaultStatus: 201,
	}, func(ctx context.Context, input *CreateDraftInput) (*CreateDraftOutput, error) {
		return nil, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID:   "createReply",
		Method:        "POST",
		Path:          "/v1/drafts/reply",
		Summary:       "Draft a reply",
		Description:   "Generate a reply to an existing email thread. Counts one request against the monthly quota.",
		Tags:          []string{"Generation"},
		Security:      securityRequirement,
		DefaultStatus: 201,
	}, func(ctx context.Context, input *CreateReplyInput) (*CreateReplyOutput, error) {
		return nil, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "summarizeThread",
		Method:      "POST",
		Path:        "/v1/threads/summarize",
		Summary:     "Summarize a thread",
		Description: "Produce a short summary of an email thread. Counts one request against the monthly quota.",
		Tags:        []string{"Generation"},
		Security:    securityRequirement,
	}, func(ctx context.Context, input *SummarizeThreadInput) (*SummarizeThreadOutput, error) {
		return nil, nil
	})

	// Usage operations
	huma.Register(humaAPI, huma.Operation{
		OperationID: "getUsage",
		Method:      "GET",
		Path:        "/v1/usage",
		Summary:     "Get usage summary",
		Description: "Returns consumption against the monthly plan limits for the current billing period.",
		Tags:        []string{"Usage"},
		Security:    securityRequirement,
	}, func(ctx context.Context, input *GetUsageInput) (*GetUsageOutput, error) {
		return nil, nil
	})
}
