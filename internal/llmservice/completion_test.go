package llmservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"pdf-rag/internal/config"
)

func TestNormalizeCompletion(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "bare string", body: `"  hello"`, want: "  hello"},
		{name: "list of generations", body: `[{"generated_text":"from list"}]`, want: "from list"},
		{name: "list of strings", body: `["plain"]`, want: "plain"},
		{name: "object", body: `{"generated_text":"from object"}`, want: "from object"},
		{name: "error object", body: `{"error":"Model is loading"}`, wantErr: true},
		{name: "empty list", body: `[]`, wantErr: true},
		{name: "unknown object", body: `{"foo":"bar"}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeCompletion([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func completionConfig(url string) *config.LLMConfig {
	return &config.LLMConfig{
		Style:     config.StyleCompletion,
		BaseURL:   url,
		Model:     "mistralai/Mistral-7B-Instruct-v0.2",
		Token:     "hf_test",
		MaxTokens: 200,
		Timeout:   5 * time.Second,
	}
}

func TestCompletionGenerator_Generate(t *testing.T) {
	var req completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/mistralai/Mistral-7B-Instruct-v0.2" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hf_test" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`[{"generated_text":" The answer is 42. "}]`))
	}))
	defer srv.Close()

	gen, err := NewGenerator(completionConfig(srv.URL))
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}
	answer, err := gen.Generate(context.Background(), Prompt{Context: "life: 42", Question: "What is the answer?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != " The answer is 42. " {
		t.Fatalf("unexpected answer: %q", answer.Text)
	}

	if req.Parameters.MaxNewTokens != 200 || req.Parameters.ReturnFullText {
		t.Fatalf("unexpected parameters: %+v", req.Parameters)
	}
	if !strings.Contains(req.Inputs, "Use ONLY the context below") ||
		!strings.Contains(req.Inputs, "life: 42") ||
		!strings.Contains(req.Inputs, "Question: What is the answer?") {
		t.Fatalf("unexpected prompt: %q", req.Inputs)
	}
}

func TestCompletionGenerator_ExplicitZeroTemperature(t *testing.T) {
	var raw map[string]map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`"ok"`))
	}))
	defer srv.Close()

	cfg := completionConfig(srv.URL)
	zero := 0.0
	cfg.Temperature = &zero
	if _, err := NewCompletionGenerator(cfg).Generate(context.Background(), Prompt{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := raw["parameters"]["temperature"]; !ok || got != 0.0 {
		t.Fatalf("expected temperature 0 in request, got %v", raw["parameters"])
	}
}

func TestCompletionGenerator_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer srv.Close()

	_, err := NewCompletionGenerator(completionConfig(srv.URL)).Generate(context.Background(), Prompt{})
	if err == nil || !strings.Contains(err.Error(), "Model is currently loading") {
		t.Fatalf("expected loading error, got %v", err)
	}
}

func TestCompletionGenerator_EmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generated_text":"\n  "}`))
	}))
	defer srv.Close()

	_, err := NewCompletionGenerator(completionConfig(srv.URL)).Generate(context.Background(), Prompt{})
	if !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "short", n: 10, want: "short"},
		{in: "abcdef", n: 3, want: "abc..."},
		{in: "héllo wörld", n: 2, want: "hé..."},
		{in: "日本語テキスト", n: 3, want: "日本語..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Fatalf("truncate(%q, %d): expected %q, got %q", tt.in, tt.n, tt.want, got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}
