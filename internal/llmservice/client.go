package llmservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

var ErrEmptyAnswer = errors.New("model returned an empty answer")

// Prompt is the retrieved context plus the user's question.
type Prompt struct {
	Context  string
	Question string
}

// Answer is the model output after normalization: whatever shape the
// provider responded with, callers only ever see the text.
type Answer struct {
	Text string
}

type Generator interface {
	Generate(ctx context.Context, p Prompt) (Answer, error)
}

// NewGenerator picks the chat or raw completion client by cfg.Style.
func NewGenerator(cfg *config.LLMConfig) (Generator, error) {
	log.Debug().Interface("llmConfig", map[string]interface{}{
		"style":      cfg.Style,
		"base_url":   cfg.BaseURL,
		"model":      cfg.Model,
		"max_tokens": cfg.MaxTokens,
	}).Msg("Creating generator")

	switch cfg.Style {
	case config.StyleChat, "":
		return NewChatGenerator(cfg)
	case config.StyleCompletion:
		return NewCompletionGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm style: %q", cfg.Style)
	}
}

// ChatGenerator talks to an OpenAI compatible chat completions endpoint.
type ChatGenerator struct {
	llm         *openai.LLM
	maxTokens   int
	temperature float64
}

func NewChatGenerator(cfg *config.LLMConfig) (*ChatGenerator, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Token, "Bearer ")),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, err
	}
	return &ChatGenerator{llm: llm, maxTokens: cfg.MaxTokens, temperature: cfg.SamplingTemperature()}, nil
}

func (g *ChatGenerator) Generate(ctx context.Context, p Prompt) (Answer, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(models.UserPromptTemplate, p.Context, p.Question)),
	}

	resp, err := GenerateContent(ctx, g.llm, messages,
		llms.WithMaxTokens(g.maxTokens),
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		return Answer{}, err
	}
	if len(resp.Choices) == 0 {
		return Answer{}, ErrEmptyAnswer
	}
	return newAnswer(resp.Choices[0].Content)
}

// GenerateContent sends one round of messages to the model.
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	log.Debug().Int("messages", len(messages)).Msg("Generating content")
	return llm.GenerateContent(ctx, messages, opts...)
}

// newAnswer keeps the model output as returned; whitespace only counts when
// deciding whether the answer is empty.
func newAnswer(text string) (Answer, error) {
	if strings.TrimSpace(text) == "" {
		return Answer{}, ErrEmptyAnswer
	}
	return Answer{Text: text}, nil
}
