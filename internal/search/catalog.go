package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// CorpusArtifacts locates the persisted store and index of one corpus.
type CorpusArtifacts struct {
	Name      string
	Store     storage.Location
	IndexPath string
}

// Catalog is the read-only retrieval state shared by all requests. A catalog is never
// mutated after construction; reloads build a new one.
type Catalog struct {
	sources    []*Source
	dimensions int
	indexType  string
	loadedAt   time.Time
}

// NewCatalog builds a catalog over sources. All sources must share one dimension.
func NewCatalog(indexType string, sources ...*Source) (*Catalog, error) {
	if len(sources) == 0 {
		return nil, errors.New("catalog needs at least one corpus")
	}
	dims := sources[0].Index.Dimensions()
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		if seen[src.Name] {
			return nil, fmt.Errorf("duplicate corpus name: %s", src.Name)
		}
		seen[src.Name] = true
		if d := src.Index.Dimensions(); d != dims {
			return nil, fmt.Errorf("corpus %s has dimension %d, expected %d", src.Name, d, dims)
		}
	}
	return &Catalog{
		sources:    sources,
		dimensions: dims,
		indexType:  indexType,
		loadedAt:   time.Now(),
	}, nil
}

// LoadCatalog opens every corpus in order, checks its store against its index and returns
// the combined catalog. Any corrupt or inconsistent corpus fails the whole load.
func LoadCatalog(ctx context.Context, corpora []CorpusArtifacts, indexType string, logger *zap.Logger) (*Catalog, error) {
	logger = utils.OrNop(logger)
	sources := make([]*Source, 0, len(corpora))
	for _, c := range corpora {
		src, err := loadSource(ctx, c, indexType)
		if err != nil {
			for _, s := range sources {
				_ = s.Index.Close()
			}
			return nil, err
		}
		logger.Info("Loaded corpus",
			zap.String("corpus", c.Name),
			zap.Int("vectors", src.Index.Size()),
			zap.Int("dimensions", src.Index.Dimensions()),
			zap.String("index_type", src.Index.Type()))
		sources = append(sources, src)
	}
	cat, err := NewCatalog(indexType, sources...)
	if err != nil {
		for _, s := range sources {
			_ = s.Index.Close()
		}
		return nil, err
	}
	return cat, nil
}

func loadSource(ctx context.Context, c CorpusArtifacts, indexType string) (*Source, error) {
	store, err := storage.Open(c.Store)
	if err != nil {
		return nil, fmt.Errorf("open store for %s: %w", c.Name, err)
	}
	defer store.Close()

	vectors, texts, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store for %s: %w", c.Name, err)
	}

	index, err := vector.LoadVectorIndex(indexType, c.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("load index for %s: %w", c.Name, err)
	}
	if len(vectors) > 0 && len(vectors[0]) != index.Dimensions() {
		_ = index.Close()
		return nil, fmt.Errorf("corpus %s: store dimension %d does not match index dimension %d",
			c.Name, len(vectors[0]), index.Dimensions())
	}
	src, err := NewSource(c.Name, index, texts)
	if err != nil {
		_ = index.Close()
		return nil, err
	}
	return src, nil
}

// Sources returns the corpora in retrieval order.
func (c *Catalog) Sources() []*Source { return c.sources }

// Dimensions returns the vector dimension shared by every corpus.
func (c *Catalog) Dimensions() int { return c.dimensions }

// IndexType returns the configured index implementation.
func (c *Catalog) IndexType() string { return c.indexType }

// LoadedAt returns when the catalog was built.
func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

// Size returns the total number of vectors across corpora.
func (c *Catalog) Size() int {
	n := 0
	for _, s := range c.sources {
		n += s.Index.Size()
	}
	return n
}

// Retrieve fuses the topK nearest chunks of every corpus for query.
func (c *Catalog) Retrieve(ctx context.Context, query []float32, topK int) (*models.CombinedContext, error) {
	return Fuse(ctx, query, c.sources, topK)
}

// Close releases every index.
func (c *Catalog) Close() error {
	var errs []error
	for _, s := range c.sources {
		if err := s.Index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot publishes the current catalog. Readers never block writers or each other.
type Snapshot struct {
	current atomic.Pointer[Catalog]
}

// NewSnapshot returns a snapshot publishing c.
func NewSnapshot(c *Catalog) *Snapshot {
	s := &Snapshot{}
	s.current.Store(c)
	return s
}

// Load returns the published catalog.
func (s *Snapshot) Load() *Catalog { return s.current.Load() }

// Store publishes c and returns the catalog it replaced.
func (s *Snapshot) Store(c *Catalog) *Catalog { return s.current.Swap(c) }

// Status summarizes the catalog. Disk usage is left to the caller, which knows the paths.
func (c *Catalog) Status() *models.Status {
	st := &models.Status{
		Corpora:      make([]models.CorpusStatus, 0, len(c.sources)),
		TotalVectors: c.Size(),
		Dimensions:   c.dimensions,
		IndexType:    c.indexType,
		LoadedAt:     c.loadedAt,
	}
	for _, s := range c.sources {
		st.Corpora = append(st.Corpora, models.CorpusStatus{
			Name:       s.Name,
			Vectors:    s.Index.Size(),
			Dimensions: s.Index.Dimensions(),
			IndexType:  s.Index.Type(),
		})
	}
	return st
}
