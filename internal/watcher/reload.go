package watcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/search"
)

const defaultRetireAfter = 2 * time.Minute

// Reloader rebuilds the catalog from disk and publishes it. A failed load leaves the
// current catalog in place.
type Reloader struct {
	corpora     []search.CorpusArtifacts
	indexType   string
	snapshot    *search.Snapshot
	retireAfter time.Duration
	logger      *zap.Logger
	mu          sync.Mutex
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithReloadLogger sets the reload logger.
func WithReloadLogger(l *zap.Logger) ReloaderOption {
	return func(r *Reloader) { r.logger = l }
}

// WithRetireAfter sets how long a replaced catalog stays open for in-flight requests
// before its indexes are closed.
func WithRetireAfter(d time.Duration) ReloaderOption {
	return func(r *Reloader) { r.retireAfter = d }
}

// NewReloader creates a reloader publishing into snapshot.
func NewReloader(corpora []search.CorpusArtifacts, indexType string, snapshot *search.Snapshot, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		corpora:     corpora,
		indexType:   indexType,
		snapshot:    snapshot,
		retireAfter: defaultRetireAfter,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload loads a new catalog and swaps it in.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	next, err := search.LoadCatalog(ctx, r.corpora, r.indexType, r.logger)
	if err != nil {
		r.logger.Warn("Catalog reload failed, keeping current catalog", zap.Error(err))
		return err
	}
	prev := r.snapshot.Store(next)
	r.logger.Info("Catalog reloaded",
		zap.Int("vectors", next.Size()),
		zap.Duration("elapsed", time.Since(start)))
	if prev != nil {
		r.retire(prev)
	}
	return nil
}

func (r *Reloader) retire(c *search.Catalog) {
	if r.retireAfter <= 0 {
		_ = c.Close()
		return
	}
	time.AfterFunc(r.retireAfter, func() {
		if err := c.Close(); err != nil {
			r.logger.Debug("closing retired catalog", zap.Error(err))
		}
	})
}
