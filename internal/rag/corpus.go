package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
	"pdf-rag/internal/vectorindex"
)

// Corpus pairs the chunk store with its vector index. Row i of the index is
// always the embedding of chunk i; both only change together under mu.
type Corpus struct {
	mu        sync.RWMutex
	index     vectorindex.Index
	chunks    []models.Chunk
	documents []models.DocumentInfo
}

type Stats struct {
	Chunks    int                   `json:"chunks"`
	Rows      int                   `json:"rows"`
	Documents []models.DocumentInfo `json:"documents"`
}

func NewCorpus(index vectorindex.Index) *Corpus {
	return &Corpus{index: index}
}

// Size is the number of stored chunks.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// Chunk returns chunk i, or false when i is out of range.
func (c *Corpus) Chunk(i int) (models.Chunk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chunkLocked(i)
}

func (c *Corpus) chunkLocked(i int) (models.Chunk, bool) {
	if i < 0 || i >= len(c.chunks) {
		return models.Chunk{}, false
	}
	return c.chunks[i], true
}

func (c *Corpus) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked(ctx)
}

func (c *Corpus) resetLocked(ctx context.Context) error {
	c.chunks = nil
	c.documents = nil
	return c.index.Reset(ctx)
}

// Append adds a document's chunks and their vectors in one step.
func (c *Corpus) Append(ctx context.Context, doc models.DocumentInfo, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.index.Add(ctx, vectors...); err != nil {
		// a partial add would leave rows without chunks
		if rows, cerr := c.index.Count(ctx); cerr != nil || rows != len(c.chunks) {
			log.Warn().Int("chunks", len(c.chunks)).Int("rows", rows).Msg("Index out of step with chunk store, clearing corpus")
			if rerr := c.resetLocked(ctx); rerr != nil {
				log.Error().Err(rerr).Msg("Failed to clear corpus")
			}
		}
		return err
	}

	base := len(c.chunks)
	for i, text := range chunks {
		c.chunks = append(c.chunks, models.Chunk{Content: text, Index: base + i})
	}
	c.documents = append(c.documents, doc)
	return nil
}

// Search returns the stored chunks nearest to query. Index rows that do not
// resolve to a stored chunk are dropped.
func (c *Corpus) Search(ctx context.Context, query []float32, k int) ([]models.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits, err := c.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	found := make([]models.Chunk, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := c.chunkLocked(hit.Row)
		if !ok {
			if hit.Row != vectorindex.NoRow {
				log.Debug().Int("row", hit.Row).Int("chunks", len(c.chunks)).Msg("Dropping stale index row")
			}
			continue
		}
		found = append(found, chunk)
	}
	return found, nil
}

func (c *Corpus) Stats(ctx context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.index.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	docs := make([]models.DocumentInfo, len(c.documents))
	copy(docs, c.documents)
	return Stats{Chunks: len(c.chunks), Rows: rows, Documents: docs}, nil
}
