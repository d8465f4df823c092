package embedding

import (
	"context"
	"errors"
	"fmt"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Validated rejects vectors whose length differs from the configured
// dimension, so a misconfigured model never reaches the index.
type Validated struct {
	embedder  Embedder
	dimension int
}

func NewValidated(e Embedder, dimension int) *Validated {
	return &Validated{embedder: e, dimension: dimension}
}

func (v *Validated) Dimension() int { return v.dimension }

func (v *Validated) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := v.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if v.dimension > 0 && len(vec) != v.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), v.dimension)
	}
	return vec, nil
}
