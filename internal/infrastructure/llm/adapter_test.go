package llm

import (
	"context"
	"testing"

	"novel-journey-api/internal/application/gateway"
	"novel-journey-api/internal/application/prompt"
)

func TestParseModelOutput(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		structured bool
		check      func(t *testing.T, r *gateway.Result)
	}{
		{
			name:       "json object",
			content:    `{"title": "The Crossing", "chapters": 3}`,
			structured: true,
			check: func(t *testing.T, r *gateway.Result) {
				if r.Structured["title"] != "The Crossing" {
					t.Errorf("title = %v", r.Structured["title"])
				}
			},
		},
		{
			name:       "json array wrapped under items",
			content:    `[{"id": 1}, {"id": 2}]`,
			structured: true,
			check: func(t *testing.T, r *gateway.Result) {
				items, ok := r.Structured["items"].([]any)
				if !ok || len(items) != 2 {
					t.Errorf("items = %v", r.Structured["items"])
				}
			},
		},
		{
			name:       "json code fence stripped",
			content:    "```json\n{\"genre\": \"mystery\"}\n```",
			structured: true,
			check: func(t *testing.T, r *gateway.Result) {
				if r.Structured["genre"] != "mystery" {
					t.Errorf("genre = %v", r.Structured["genre"])
				}
			},
		},
		{
			name:       "bare code fence stripped",
			content:    "```\n{\"ok\": true}\n```",
			structured: true,
		},
		{
			name:       "plain prose degrades to raw",
			content:    "The chapter opens with rain over the harbor.",
			structured: false,
			check: func(t *testing.T, r *gateway.Result) {
				if r.Raw != "The chapter opens with rain over the harbor." {
					t.Errorf("Raw = %q", r.Raw)
				}
			},
		},
		{
			name:       "broken json degrades to raw",
			content:    `{"title": "unterminated`,
			structured: false,
		},
		{
			name:       "leading whitespace tolerated",
			content:    "\n\n  {\"ok\": true}",
			structured: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseModelOutput("m1", tt.content)
			if r.ModelID != "m1" {
				t.Errorf("ModelID = %q", r.ModelID)
			}
			if r.IsStructured() != tt.structured {
				t.Fatalf("IsStructured = %v, want %v (raw %q)", r.IsStructured(), tt.structured, r.Raw)
			}
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

func TestLocalAdapterDeterministic(t *testing.T) {
	adapter := newLocalAdapter("default-model")
	opts := gateway.CallOptions{Action: string(prompt.ActionGenerateChapter)}

	first, err := adapter.ProcessPrompt(context.Background(), "chapter 1 of The Crossing", opts)
	if err != nil {
		t.Fatalf("ProcessPrompt: %v", err)
	}
	again, err := adapter.ProcessPrompt(context.Background(), "chapter 1 of The Crossing", opts)
	if err != nil {
		t.Fatalf("ProcessPrompt: %v", err)
	}
	if first.Raw != again.Raw || first.IsStructured() != again.IsStructured() {
		t.Error("same prompt must produce the same output")
	}
	if first.Usage.PromptTokens == 0 || first.Usage.CompletionTokens == 0 {
		t.Errorf("usage not filled: %+v", first.Usage)
	}
}

func TestLocalAdapterStructuredActions(t *testing.T) {
	adapter := newLocalAdapter("default-model")
	for _, action := range []prompt.Action{
		prompt.ActionAnalyzeSource,
		prompt.ActionGenerateIdeas,
		prompt.ActionGenerateBlueprint,
		prompt.ActionFinalReview,
	} {
		result, err := adapter.ProcessPrompt(context.Background(), "prompt for "+string(action),
			gateway.CallOptions{Action: string(action)})
		if err != nil {
			t.Fatalf("%s: %v", action, err)
		}
		if !result.IsStructured() {
			t.Errorf("%s: expected structured output, got raw %q", action, result.Raw)
		}
	}
}

func TestLocalAdapterHonorsCancellation(t *testing.T) {
	adapter := newLocalAdapter("default-model")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.ProcessPrompt(ctx, "x", gateway.CallOptions{}); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFingerprintHidesCredential(t *testing.T) {
	a := fingerprint("sk-secret-one")
	b := fingerprint("sk-secret-two")
	if a == b {
		t.Error("different credentials must have different fingerprints")
	}
	if a != fingerprint("sk-secret-one") {
		t.Error("fingerprint must be stable")
	}
	if len(a) != 16 {
		t.Errorf("fingerprint length = %d, want 16 hex chars", len(a))
	}
	if a == "sk-secret-one" {
		t.Error("fingerprint must not expose the raw credential")
	}
}
