package vectorindex

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestFlat_SearchOrdersNearestFirst(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(2)
	if err := idx.Add(ctx, []float32{0, 0}, []float32{10, 10}, []float32{1, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits, err := idx.Search(ctx, []float32{0.9, 0.9}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Row != 2 || hits[1].Row != 0 {
		t.Fatalf("unexpected order: %+v", hits)
	}
	// (0.1)^2 + (0.1)^2
	if math.Abs(float64(hits[0].Distance)-0.02) > 1e-5 {
		t.Fatalf("expected squared distance 0.02, got %f", hits[0].Distance)
	}
}

func TestFlat_PadsWithNoRowWhenKExceedsRows(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(2)
	_ = idx.Add(ctx, []float32{1, 0})

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(hits))
	}
	if hits[0].Row != 0 {
		t.Fatalf("expected row 0 first, got %d", hits[0].Row)
	}
	for _, h := range hits[1:] {
		if h.Row != NoRow || !math.IsInf(float64(h.Distance), 1) {
			t.Fatalf("expected padding entry, got %+v", h)
		}
	}
}

func TestFlat_EmptyIndex(t *testing.T) {
	idx := NewFlat(2)
	hits, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, h := range hits {
		if h.Row != NoRow {
			t.Fatalf("expected only padding on empty index, got %+v", h)
		}
	}
}

func TestFlat_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(3)
	if err := idx.Add(ctx, []float32{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch on add, got %v", err)
	}
	if n, _ := idx.Count(ctx); n != 0 {
		t.Fatalf("expected rejected add to leave index empty, got %d rows", n)
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch on search, got %v", err)
	}
}

func TestFlat_ResetAndCount(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(1)
	_ = idx.Add(ctx, []float32{1}, []float32{2})
	if n, _ := idx.Count(ctx); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
	if err := idx.Reset(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := idx.Count(ctx); n != 0 {
		t.Fatalf("expected 0 rows after reset, got %d", n)
	}
}

func TestFlat_AddCopiesVectors(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(1)
	v := []float32{5}
	_ = idx.Add(ctx, v)
	v[0] = 100

	hits, _ := idx.Search(ctx, []float32{5}, 1)
	if hits[0].Distance != 0 {
		t.Fatalf("expected stored vector to be unaffected by caller mutation, got distance %f", hits[0].Distance)
	}
}
