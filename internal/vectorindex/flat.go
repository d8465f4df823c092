package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Flat is a brute-force in-memory L2 index. When k exceeds the row count
// the result is padded with NoRow entries at +Inf distance.
type Flat struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

func NewFlat(dimension int) *Flat {
	return &Flat{dimension: dimension}
}

func (f *Flat) Add(_ context.Context, vectors ...[]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range vectors {
		if f.dimension > 0 && len(v) != f.dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), f.dimension)
		}
	}
	for _, v := range vectors {
		f.vectors = append(f.vectors, append([]float32(nil), v...))
	}
	return nil
}

func (f *Flat) Search(_ context.Context, query []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	if f.dimension > 0 && len(query) != f.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(query), f.dimension)
	}

	f.mu.RLock()
	hits := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Neighbor{Row: i, Distance: squaredL2(query, v)}
	}
	f.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	for len(hits) < k {
		hits = append(hits, Neighbor{Row: NoRow, Distance: float32(math.Inf(1))})
	}
	return hits, nil
}

func (f *Flat) Count(_ context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors), nil
}

func (f *Flat) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = nil
	return nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
