package parser

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkText_Sizes(t *testing.T) {
	chunks := ChunkText(strings.Repeat("a", 1200), 500)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, want := range []int{500, 500, 200} {
		if len(chunks[i]) != want {
			t.Fatalf("chunk %d: expected %d characters, got %d", i, want, len(chunks[i]))
		}
	}
}

func TestChunkText_IsLosslessPartition(t *testing.T) {
	inputs := []string{
		"a",
		strings.Repeat("abc", 333),
		"naïve café " + strings.Repeat("日本語テキスト", 50),
		strings.Repeat("🙂", 17),
	}
	for _, in := range inputs {
		for _, size := range []int{1, 3, 7, 500} {
			chunks := ChunkText(in, size)
			if got := strings.Join(chunks, ""); got != in {
				t.Fatalf("size %d: join mismatch for %q", size, in)
			}
			for i, c := range chunks {
				n := utf8.RuneCountInString(c)
				if i < len(chunks)-1 && n != size {
					t.Fatalf("size %d: chunk %d has %d code points", size, i, n)
				}
				if n == 0 || n > size {
					t.Fatalf("size %d: chunk %d has invalid length %d", size, i, n)
				}
			}
		}
	}
}

func TestChunkText_Empty(t *testing.T) {
	if chunks := ChunkText("", 500); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkText_DefaultSize(t *testing.T) {
	chunks := ChunkText(strings.Repeat("x", DefaultChunkSize+1), 0)
	if len(chunks) != 2 || len(chunks[0]) != DefaultChunkSize {
		t.Fatalf("expected default size chunks, got %d chunks", len(chunks))
	}
}

func TestChunkText_CountsCodePointsNotBytes(t *testing.T) {
	chunks := ChunkText(strings.Repeat("é", 10), 4)
	if len(chunks) != 3 || chunks[2] != "éé" {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
}
