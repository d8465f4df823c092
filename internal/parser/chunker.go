package parser

import "unicode/utf8"

const DefaultChunkSize = 500

// ChunkText splits text at fixed offsets of size characters with no
// overlap. Joining the result reproduces text exactly; every chunk except
// the last holds exactly size characters.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if text == "" {
		return nil
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, text[start:])
}
