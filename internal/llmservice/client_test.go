package llmservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

func chatServer(t *testing.T, content string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hf_test" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "google/gemma-2-2b-it",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func chatConfig(url string) *config.LLMConfig {
	return &config.LLMConfig{
		Style:     config.StyleChat,
		BaseURL:   url,
		Model:     "google/gemma-2-2b-it",
		Token:     "hf_test",
		MaxTokens: 200,
		Timeout:   5 * time.Second,
	}
}

func TestChatGenerator_Generate(t *testing.T) {
	var seen map[string]interface{}
	srv := chatServer(t, "  Paris is the capital.\n", &seen)
	defer srv.Close()

	gen, err := NewGenerator(chatConfig(srv.URL))
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	answer, err := gen.Generate(context.Background(), Prompt{Context: "France: capital Paris", Question: "What is the capital?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != "  Paris is the capital.\n" {
		t.Fatalf("expected the answer as returned, got %q", answer.Text)
	}

	if seen["model"] != "google/gemma-2-2b-it" {
		t.Fatalf("unexpected model in request: %v", seen["model"])
	}
	msgs, ok := seen["messages"].([]interface{})
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", seen["messages"])
	}
	raw, _ := json.Marshal(msgs[1])
	if !strings.Contains(string(raw), "France: capital Paris") || !strings.Contains(string(raw), "What is the capital?") {
		t.Fatalf("user message is missing context or question: %s", raw)
	}
}

func TestChatGenerator_ForwardsNotFoundPhraseVerbatim(t *testing.T) {
	srv := chatServer(t, models.NotFoundPhrase, nil)
	defer srv.Close()

	gen, err := NewChatGenerator(chatConfig(srv.URL))
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}
	answer, err := gen.Generate(context.Background(), Prompt{Context: "x", Question: "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != models.NotFoundPhrase {
		t.Fatalf("expected %q, got %q", models.NotFoundPhrase, answer.Text)
	}
}

func TestChatGenerator_EmptyAnswer(t *testing.T) {
	srv := chatServer(t, "   ", nil)
	defer srv.Close()

	gen, _ := NewChatGenerator(chatConfig(srv.URL))
	if _, err := gen.Generate(context.Background(), Prompt{}); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestChatGenerator_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid token"}}`))
	}))
	defer srv.Close()

	gen, _ := NewChatGenerator(chatConfig(srv.URL))
	if _, err := gen.Generate(context.Background(), Prompt{}); err == nil {
		t.Fatal("expected error for unauthorized response")
	}
}

func TestNewGenerator_UnknownStyle(t *testing.T) {
	cfg := chatConfig("http://localhost")
	cfg.Style = "poetry"
	if _, err := NewGenerator(cfg); err == nil {
		t.Fatal("expected error for unknown style")
	}
}
