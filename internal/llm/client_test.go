package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateOpenAI(t *testing.T) {
	var gotAuth string
	var gotReq openAIRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "drafted email"}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{OpenAIKey: "sk-test"})
	client.openAIURL = srv.URL

	result, err := client.Generate(context.Background(), Request{
		Model:  "gpt-4o-mini",
		System: "you write emails",
		Prompt: "write a thank you note",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v, want system then user", gotReq.Messages)
	}
	if result.Text != "drafted email" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.InputTokens != 12 || result.OutputTokens != 34 {
		t.Errorf("tokens = %d/%d, want 12/34", result.InputTokens, result.OutputTokens)
	}
}

func TestGenerateAnthropic(t *testing.T) {
	var gotKey, gotVersion string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "summary "},
				{"type": "text", "text": "continued"},
			},
			"usage": map[string]int{"input_tokens": 5, "output_tokens": 9},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{AnthropicKey: "ak-test"})
	client.anthropicURL = srv.URL

	result, err := client.Generate(context.Background(), Request{
		Model:  "claude-3-haiku",
		Prompt: "summarize this thread",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if gotKey != "ak-test" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != anthropicVersion {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if result.Text != "summary continued" {
		t.Errorf("Text = %q, want concatenated blocks", result.Text)
	}
	if result.InputTokens != 5 || result.OutputTokens != 9 {
		t.Errorf("tokens = %d/%d, want 5/9", result.InputTokens, result.OutputTokens)
	}
}

func TestGenerateGoogle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-flash" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "gk-test" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "reply text"}}}},
			},
			"usageMetadata": map[string]int{"promptTokenCount": 7, "candidatesTokenCount": 11},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{GoogleAIKey: "gk-test"})
	client.googleURL = srv.URL + "/models/%s?key=%s"

	result, err := client.Generate(context.Background(), Request{
		Model:  "gemini-1.5-flash",
		Prompt: "reply to this email",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Text != "reply text" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.InputTokens != 7 || result.OutputTokens != 11 {
		t.Errorf("tokens = %d/%d, want 7/11", result.InputTokens, result.OutputTokens)
	}
}

func TestGenerateMissingKey(t *testing.T) {
	client := NewClient(Config{})

	for _, model := range []string{"gpt-4o", "claude-3-opus", "gemini-1.5-pro"} {
		_, err := client.Generate(context.Background(), Request{Model: model, Prompt: "hi"})
		if !errors.Is(err, ErrProviderNotConfigured) {
			t.Errorf("Generate(%s) error = %v, want ErrProviderNotConfigured", model, err)
		}
	}
}

func TestGenerateProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{OpenAIKey: "sk-test"})
	client.openAIURL = srv.URL

	_, err := client.Generate(context.Background(), Request{Model: "gpt-4o", Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestGenerateEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := NewClient(Config{OpenAIKey: "sk-test"})
	client.openAIURL = srv.URL

	_, err := client.Generate(context.Background(), Request{Model: "gpt-4o", Prompt: "hi"})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("error = %v, want ErrEmptyCompletion", err)
	}
}
