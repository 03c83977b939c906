package indexer

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker groups consecutive lines of a document into chunks of roughly maxSize characters.
type Chunker struct {
	maxSize int
}

// NewChunker creates a chunker with the given soft size bound in characters.
// Values below 1 are clamped to 1.
func NewChunker(maxSize int) *Chunker {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Chunker{maxSize: maxSize}
}

// MaxSize returns the configured size bound.
func (c *Chunker) MaxSize() int { return c.maxSize }

// Chunk splits text on newlines and accumulates trimmed lines until adding the next
// line would reach maxSize. A line that alone reaches maxSize becomes its own chunk.
// Blank accumulators are never emitted, so empty input yields no chunks.
func (c *Chunker) Chunk(sourceID, text string) []*models.Chunk {
	var (
		chunks []*models.Chunk
		acc    strings.Builder
		accLen int
	)
	emit := func() {
		content := strings.TrimSpace(acc.String())
		if content == "" {
			return
		}
		chunks = append(chunks, &models.Chunk{
			SourceID:      sourceID,
			Content:       content,
			SequenceIndex: len(chunks),
		})
	}
	push := func(line string) {
		trimmed := strings.TrimSpace(line)
		acc.WriteString(trimmed)
		acc.WriteByte('\n')
		accLen += utf8.RuneCountInString(trimmed) + 1
	}

	for _, line := range strings.Split(text, "\n") {
		if accLen+utf8.RuneCountInString(line) < c.maxSize {
			push(line)
			continue
		}
		emit()
		acc.Reset()
		accLen = 0
		push(line)
	}
	emit()
	return chunks
}
