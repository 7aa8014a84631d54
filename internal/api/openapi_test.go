package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGenerateOpenAPISpec(t *testing.T) {
	spec, err := GenerateOpenAPISpec()
	if err != nil {
		t.Fatalf("GenerateOpenAPISpec: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(spec, &doc); err != nil {
		t.Fatalf("spec is not valid JSON: %v", err)
	}

	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatal("spec has no paths")
	}

	for _, path := range []string{"/health", "/v1/drafts", "/v1/drafts/reply", "/v1/threads/summarize", "/v1/usage"} {
		if _, ok := paths[path]; !ok {
			t.Errorf("spec missing path %s", path)
		}
	}

	if !strings.Contains(string(spec), "bearerAuth") {
		t.Error("spec missing bearerAuth security scheme")
	}
}
