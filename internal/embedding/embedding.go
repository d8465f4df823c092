package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	hfembed "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
)

// Embedder maps text to a vector. langchaingo embedders satisfy it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder builds the embedder selected by cfg.Provider and wraps it so
// that every vector is checked against cfg.Dimension.
func NewEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Msg("Creating embedder")

	var (
		e   embeddings.Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderHuggingFace:
		e, err = newHuggingFaceEmbedder(cfg)
	case config.ProviderOpenAI:
		e, err = newOpenAIEmbedder(cfg)
	case config.ProviderOllama:
		e, err = newOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", cfg.Provider, err)
	}
	return NewValidated(e, cfg.Dimension), nil
}

func newHuggingFaceEmbedder(cfg *config.EmbeddingConfig) (embeddings.Embedder, error) {
	opts := []huggingface.Option{
		huggingface.WithToken(cfg.Token),
		huggingface.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, huggingface.WithURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	llm, err := huggingface.New(opts...)
	if err != nil {
		return nil, err
	}
	return hfembed.NewHuggingface(
		hfembed.WithClient(*llm),
		hfembed.WithModel(cfg.Model),
		hfembed.WithTask("feature-extraction"),
		hfembed.WithStripNewLines(false),
	)
}

func newOpenAIEmbedder(cfg *config.EmbeddingConfig) (embeddings.Embedder, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Token, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(false))
}

func newOllamaEmbedder(cfg *config.EmbeddingConfig) (embeddings.Embedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(false))
}

// EmbedChunks embeds each chunk in order, one call per chunk. The first
// failure aborts the whole batch.
func EmbedChunks(ctx context.Context, e Embedder, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	vectors := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := e.EmbedQuery(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
