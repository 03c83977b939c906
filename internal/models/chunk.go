// Package models defines core data structures for chunks, queries, and retrieval results.
package models

// Chunk is a bounded-size, source-tagged unit of document text produced by the chunker.
// The JSON shape matches the corpus-preparation records ({source_file, content}).
type Chunk struct {
	SourceID      string `json:"source_file"`
	Content       string `json:"content"`
	SequenceIndex int    `json:"sequence_index"`
}

// Contents returns the Content of each chunk in order.
func Contents(chunks []*Chunk) []string {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	return texts
}
