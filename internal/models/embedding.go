package models

import "time"

// Chunk is a fixed-width slice of a document's extracted text.
// Index is its position in the chunk store.
type Chunk struct {
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// DocumentInfo describes the document currently backing the corpus.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Chunks     int       `json:"chunks"`
	Characters int       `json:"characters"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type UploadResult struct {
	Status   string       `json:"status"`
	Chunks   int          `json:"chunks"`
	Document DocumentInfo `json:"document"`
}

type AskResult struct {
	Answer  string `json:"answer"`
	Sources []int  `json:"sources"`
}
