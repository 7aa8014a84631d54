// Package llm provides an opaque text-generation capability over
// multiple hosted model providers. Callers hand it a model name and a
// prompt and get back text plus token counts; provider selection and
// wire formats stay inside this package.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openAIChatCompletionURL = "https://api.openai.com/v1/chat/completions"
	anthropicMessagesURL    = "https://api.anthropic.com/v1/messages"
	googleGenerateURLFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

	anthropicVersion = "2023-06-01"

	defaultMaxTokens = 2048
)

var (
	// ErrProviderNotConfigured is returned when the key for the
	// resolved provider is missing.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrEmptyCompletion is returned when a provider responds without
	// any generated text.
	ErrEmptyCompletion = errors.New("provider returned empty completion")
)

// Config holds per-provider API keys.
type Config struct {
	OpenAIKey    string
	AnthropicKey string
	GoogleAIKey  string
}

// Result is a completed generation.
type Result struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Request describes a single generation call.
type Request struct {
	Model  string
	System string
	Prompt string
}

// Client routes generation requests to the provider owning the model.
type Client struct {
	config     Config
	httpClient *http.Client

	// endpoint overrides, settable in tests
	openAIURL    string
	anthropicURL string
	googleURL    string
}

// NewClient creates an LLM client with a 30 second request timeout.
func NewClient(config Config) *Client {
	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		openAIURL:    openAIChatCompletionURL,
		anthropicURL: anthropicMessagesURL,
		googleURL:    googleGenerateURLFormat,
	}
}

// Generate runs one completion against the provider resolved from the
// model name. Any error means no billable work was delivered and the
// caller should roll back the usage charge.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	model := strings.ToLower(strings.TrimSpace(req.Model))

	switch {
	case strings.HasPrefix(model, "claude"):
		return c.generateAnthropic(ctx, req)
	case strings.HasPrefix(model, "gemini"):
		return c.generateGoogle(ctx, req)
	default:
		return c.generateOpenAI(ctx, req)
	}
}

// --- OpenAI ---

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Client) generateOpenAI(ctx context.Context, req Request) (*Result, error) {
	if c.config.OpenAIKey == "" {
		return nil, fmt.Errorf("%w: openai", ErrProviderNotConfigured)
	}

	messages := []openAIMessage{}
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	body := openAIRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
	}

	var parsed openAIResponse
	err := c.post(ctx, c.openAIURL, map[string]string{
		"Authorization": "Bearer " + c.config.OpenAIKey,
	}, body, &parsed)
	if err != nil {
		return nil, err
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, ErrEmptyCompletion
	}

	return &Result{
		Text:         parsed.Choices[0].Message.Content,
		Model:        req.Model,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}

// --- Anthropic ---

type anthropicRequest struct {
	Model     string          `json:"model"`
	System    string          `json:"system,omitempty"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []openAIMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) generateAnthropic(ctx context.Context, req Request) (*Result, error) {
	if c.config.AnthropicKey == "" {
		return nil, fmt.Errorf("%w: anthropic", ErrProviderNotConfigured)
	}

	body := anthropicRequest{
		Model:     req.Model,
		System:    req.System,
		MaxTokens: defaultMaxTokens,
		Messages: []openAIMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	var parsed anthropicResponse
	err := c.post(ctx, c.anthropicURL, map[string]string{
		"x-api-key":         c.config.AnthropicKey,
		"anthropic-version": anthropicVersion,
	}, body, &parsed)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyCompletion
	}

	return &Result{
		Text:         text.String(),
		Model:        req.Model,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}

// --- Google ---

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googleRequest struct {
	Contents          []googleContent `json:"contents"`
	SystemInstruction *googleContent  `json:"systemInstruction,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (c *Client) generateGoogle(ctx context.Context, req Request) (*Result, error) {
	if c.config.GoogleAIKey == "" {
		return nil, fmt.Errorf("%w: google", ErrProviderNotConfigured)
	}

	body := googleRequest{
		Contents: []googleContent{{Parts: []googlePart{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &googleContent{Parts: []googlePart{{Text: req.System}}}
	}

	url := fmt.Sprintf(c.googleURL, req.Model, c.config.GoogleAIKey)

	var parsed googleResponse
	if err := c.post(ctx, url, nil, body, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyCompletion
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return &Result{
		Text:         text.String(),
		Model:        req.Model,
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// post sends a JSON request and decodes a JSON response, treating any
// non-2xx status as an error carrying the provider's body text.
func (c *Client) post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
