package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
)

// Corpus prepares chunk records from a directory of raw documents.
type Corpus struct {
	chunker    *Chunker
	extractor  *extract.Extractor
	extensions []string
	logger     *zap.Logger
}

// CorpusOption configures a Corpus.
type CorpusOption func(*Corpus)

// WithCorpusLogger sets the logger used for skipped-file warnings.
func WithCorpusLogger(l *zap.Logger) CorpusOption {
	return func(c *Corpus) { c.logger = l }
}

// NewCorpus returns a Corpus. An empty extension list means extract.DefaultExtensions.
func NewCorpus(chunker *Chunker, extractor *extract.Extractor, extensions []string, opts ...CorpusOption) *Corpus {
	if len(extensions) == 0 {
		extensions = extract.DefaultExtensions
	}
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	c := &Corpus{
		chunker:    chunker,
		extractor:  extractor,
		extensions: extensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkDirectory walks dir in lexical order and chunks every file with an allowed
// extension. SourceID is the slash-separated path relative to dir. Files that cannot
// be read or extracted are skipped with a warning.
func (c *Corpus) ChunkDirectory(ctx context.Context, dir string) ([]*models.Chunk, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var (
		chunks  []*models.Chunk
		files   int
		skipped int
	)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			c.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), c.extensions) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		text, err := c.extractor.Extract(path)
		if err != nil {
			c.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
			skipped++
			return nil
		}
		files++
		chunks = append(chunks, c.chunker.Chunk(filepath.ToSlash(rel), text)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("corpus chunked",
		zap.String("dir", dir),
		zap.Int("files", files),
		zap.Int("skipped", skipped),
		zap.Int("chunks", len(chunks)),
	)
	return chunks, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// WriteChunks writes chunk records to path as an indented JSON array.
func WriteChunks(path string, chunks []*models.Chunk) error {
	if chunks == nil {
		chunks = []*models.Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chunks dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadChunks reads chunk records written by WriteChunks. Records without
// sequence_index (the older two-field layout) keep their file order.
func ReadChunks(path string) ([]*models.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	var chunks []*models.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks %s: %w", path, err)
	}
	for i, ch := range chunks {
		if ch == nil || strings.TrimSpace(ch.Content) == "" {
			return nil, fmt.Errorf("decode chunks %s: record %d has no content", path, i)
		}
	}
	return chunks, nil
}
