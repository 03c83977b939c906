// Package search retrieves chunks from several independently indexed corpora and fuses
// them into one context.
package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// DefaultTopK is the number of neighbors retrieved from each source.
const DefaultTopK = 3

// Source is one searchable corpus: a sealed index and the texts its positions refer to.
type Source struct {
	Name  string
	Index vector.VectorIndex
	Texts []string
}

// NewSource pairs index with texts after checking that every position has a text.
func NewSource(name string, index vector.VectorIndex, texts []string) (*Source, error) {
	if index.Size() != len(texts) {
		return nil, fmt.Errorf("corpus %s: index holds %d vectors but store has %d texts", name, index.Size(), len(texts))
	}
	index.Seal()
	return &Source{Name: name, Index: index, Texts: texts}, nil
}

// Fuse searches every source with the same query and concatenates the hits
// source by source. Within a source the index order is kept; sources are not re-ranked
// against each other.
func Fuse(ctx context.Context, query []float32, sources []*Source, topK int) (*models.CombinedContext, error) {
	perSource := make([][]*models.QueryResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			results, err := src.retrieve(gctx, query, topK)
			if err != nil {
				return err
			}
			perSource[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	combined := &models.CombinedContext{Results: make([]*models.QueryResult, 0, len(sources)*max(topK, 0))}
	for _, results := range perSource {
		combined.Results = append(combined.Results, results...)
	}
	return combined, nil
}

func (s *Source) retrieve(ctx context.Context, query []float32, topK int) ([]*models.QueryResult, error) {
	neighbors, err := s.Index.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.Name, err)
	}
	results := make([]*models.QueryResult, 0, len(neighbors))
	for rank, n := range neighbors {
		if n.Position < 0 || n.Position >= len(s.Texts) {
			return nil, fmt.Errorf("search %s: position %d out of range for %d texts", s.Name, n.Position, len(s.Texts))
		}
		results = append(results, &models.QueryResult{
			Source:   s.Name,
			Position: n.Position,
			Text:     s.Texts[n.Position],
			Distance: n.Distance,
			Rank:     rank,
		})
	}
	return results, nil
}
