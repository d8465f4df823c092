package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

var ErrUnexpectedResponse = errors.New("unexpected completion response")

// CompletionGenerator calls a text-generation model through the Hugging Face
// inference API, one flattened prompt per request.
type CompletionGenerator struct {
	client      *http.Client
	url         string
	token       string
	maxTokens   int
	temperature float64
}

func NewCompletionGenerator(cfg *config.LLMConfig) *CompletionGenerator {
	return &CompletionGenerator{
		client:      &http.Client{Timeout: cfg.Timeout},
		url:         strings.TrimSuffix(cfg.BaseURL, "/") + "/models/" + cfg.Model,
		token:       strings.TrimPrefix(cfg.Token, "Bearer "),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.SamplingTemperature(),
	}
}

type completionRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters completionParameters `json:"parameters"`
}

type completionParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

func (g *CompletionGenerator) Generate(ctx context.Context, p Prompt) (Answer, error) {
	payload := completionRequest{
		Inputs: fmt.Sprintf(models.CompletionPromptTemplate, p.Context, p.Question),
		Parameters: completionParameters{
			MaxNewTokens: g.maxTokens,
			Temperature:  g.temperature,
		},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Answer{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return Answer{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Answer{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Answer{}, err
	}
	log.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("Completion response")

	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(body, "error"); msg.Exists() {
			return Answer{}, fmt.Errorf("request failed: %d, %s", resp.StatusCode, msg.String())
		}
		return Answer{}, fmt.Errorf("request failed: %d, %s", resp.StatusCode, string(body))
	}

	text, err := normalizeCompletion(body)
	if err != nil {
		return Answer{}, err
	}
	return newAnswer(text)
}

// normalizeCompletion accepts every shape the inference API is known to
// return: "text", [{"generated_text": "text"}], {"generated_text": "text"}
// and {"error": "..."}.
func normalizeCompletion(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: not JSON", ErrUnexpectedResponse)
	}

	result := gjson.ParseBytes(body)
	switch {
	case result.Type == gjson.String:
		return result.String(), nil
	case result.IsArray():
		first := result.Get("0")
		if first.Type == gjson.String {
			return first.String(), nil
		}
		if text := first.Get("generated_text"); text.Exists() {
			return text.String(), nil
		}
	case result.IsObject():
		if msg := result.Get("error"); msg.Exists() {
			return "", fmt.Errorf("model error: %s", msg.String())
		}
		if text := result.Get("generated_text"); text.Exists() {
			return text.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnexpectedResponse, truncate(string(body), 200))
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
