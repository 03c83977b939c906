// Package indexer prepares corpora offline: it chunks raw documents and builds the
// embedding store and vector index that the server loads at startup.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// DefaultBatchSize is the number of chunks embedded per EmbedBatch call.
const DefaultBatchSize = 32

// Indexer embeds chunk records and writes them into a store and a vector index.
// It is single-writer and is not safe for concurrent use.
type Indexer struct {
	embedder  embedding.Embedder
	batchSize int
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets the embedding batch size. Values below 1 are ignored.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer that embeds with embedder.
func NewIndexer(embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	Vectors    int
	Dimensions int
	Duration   time.Duration
}

// Build embeds chunks in order so that vector i pairs with chunk i, appends the vectors
// to index, saves vectors and texts to store, then seals the index and writes it to
// indexPath. index must be empty and unsealed.
func (idx *Indexer) Build(
	ctx context.Context,
	chunks []*models.Chunk,
	store storage.EmbeddingStore,
	index vector.VectorIndex,
	indexPath string,
) (*BuildResult, error) {
	start := time.Now()
	if index.Size() != 0 {
		return nil, fmt.Errorf("index already holds %d vectors", index.Size())
	}

	texts := models.Contents(chunks)
	vectors := make([][]float32, 0, len(texts))
	for from := 0; from < len(texts); from += idx.batchSize {
		to := min(from+idx.batchSize, len(texts))
		batch, err := idx.embedder.EmbedBatch(ctx, texts[from:to])
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", from, to-1, err)
		}
		if len(batch) != to-from {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors", from, to-1, len(batch))
		}
		if err := index.Add(ctx, batch); err != nil {
			return nil, fmt.Errorf("index chunks %d-%d: %w", from, to-1, err)
		}
		vectors = append(vectors, batch...)
		idx.logger.Debug("indexer batch embedded", zap.Int("from", from), zap.Int("to", to), zap.Int("total", len(texts)))
	}

	if err := store.Save(ctx, vectors, texts); err != nil {
		return nil, fmt.Errorf("save embeddings: %w", err)
	}
	index.Seal()
	if err := index.Save(indexPath); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	res := &BuildResult{
		Vectors:    len(vectors),
		Dimensions: index.Dimensions(),
		Duration:   time.Since(start),
	}
	idx.logger.Info("index built",
		zap.Int("vectors", res.Vectors),
		zap.Int("dimensions", res.Dimensions),
		zap.String("index", indexPath),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}
