package rag

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/config"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/llmservice"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
)

type RAG struct {
	corpus    *Corpus
	embedder  embedding.Embedder
	generator llmservice.Generator
	cfg       config.RAGConfig

	// uploads are serialized; readers only contend on the corpus lock
	writeMu sync.Mutex
}

func NewRAG(corpus *Corpus, embedder embedding.Embedder, generator llmservice.Generator, cfg config.RAGConfig) *RAG {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = parser.DefaultChunkSize
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.UploadMode == "" {
		cfg.UploadMode = config.UploadModeReplace
	}
	return &RAG{corpus: corpus, embedder: embedder, generator: generator, cfg: cfg}
}

func (r *RAG) Corpus() *Corpus { return r.corpus }

// Upload extracts, chunks and embeds a document and adds it to the corpus.
// In replace mode the corpus is emptied first, so a failed upload leaves
// nothing behind.
func (r *RAG) Upload(ctx context.Context, filename string, data []byte) (models.UploadResult, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.cfg.UploadMode == config.UploadModeReplace {
		if err := r.corpus.Reset(ctx); err != nil {
			return models.UploadResult{}, serviceError(StageIndex, err)
		}
	}

	text, err := parser.ExtractText(filename, data)
	if err != nil {
		return models.UploadResult{}, err
	}
	if strings.TrimSpace(text) == "" {
		return models.UploadResult{}, ErrNoText
	}

	chunks := parser.ChunkText(text, r.cfg.ChunkSize)
	log.Info().Str("filename", filename).Int("chunks", len(chunks)).Msg("Chunked document")

	vectors, err := embedding.EmbedChunks(ctx, r.embedder, chunks)
	if err != nil {
		return models.UploadResult{}, serviceError(StageEmbedding, err)
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return models.UploadResult{}, err
	}
	doc := models.DocumentInfo{
		ID:         id,
		Filename:   filename,
		Chunks:     len(chunks),
		Characters: utf8.RuneCountInString(text),
		UploadedAt: time.Now().UTC(),
	}

	if err := r.corpus.Append(ctx, doc, chunks, vectors); err != nil {
		return models.UploadResult{}, serviceError(StageIndex, err)
	}

	log.Info().Str("document", doc.ID).Int("rows", r.corpus.Size()).Msg("Stored document")
	return models.UploadResult{Status: models.StatusOK, Chunks: len(chunks), Document: doc}, nil
}

// Ask answers query from the top-k chunks of the corpus.
func (r *RAG) Ask(ctx context.Context, query string) (models.AskResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.AskResult{}, ErrEmptyQuery
	}

	if r.corpus.Size() == 0 {
		return models.AskResult{Answer: models.UploadFirstAnswer, Sources: []int{}}, nil
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return models.AskResult{}, serviceError(StageEmbedding, err)
	}

	chunks, err := r.corpus.Search(ctx, queryEmbedding, r.cfg.TopK)
	if err != nil {
		return models.AskResult{}, serviceError(StageIndex, err)
	}
	if len(chunks) == 0 {
		return models.AskResult{Answer: models.NoContentAnswer, Sources: []int{}}, nil
	}

	texts := make([]string, len(chunks))
	sources := make([]int, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
		sources[i] = c.Index
	}
	log.Debug().Ints("sources", sources).Msg("Retrieved context")

	answer, err := r.generator.Generate(ctx, llmservice.Prompt{
		Context:  strings.Join(texts, models.ContextSeparator),
		Question: query,
	})
	if err != nil {
		return models.AskResult{}, serviceError(StageGeneration, err)
	}
	return models.AskResult{Answer: answer.Text, Sources: sources}, nil
}

// Reset empties the corpus.
func (r *RAG) Reset(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.corpus.Reset(ctx); err != nil {
		return serviceError(StageIndex, err)
	}
	return nil
}

func (r *RAG) Stats(ctx context.Context) (Stats, error) {
	return r.corpus.Stats(ctx)
}
