// Package vectorindex holds the row-addressed nearest neighbor index used
// by the corpus. Row i of an index is always the embedding of chunk i.
package vectorindex

import (
	"context"
	"errors"
)

// NoRow marks a padding entry returned when k exceeds the number of rows.
const NoRow = -1

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Neighbor is a search hit. Distance is the squared Euclidean distance.
type Neighbor struct {
	Row      int
	Distance float32
}

type Index interface {
	// Add appends vectors as new rows, in order.
	Add(ctx context.Context, vectors ...[]float32) error
	// Search returns up to k rows ordered nearest first. Implementations
	// may pad the result with NoRow entries.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}
