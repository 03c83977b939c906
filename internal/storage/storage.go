// Package storage persists embedding matrices paired with their chunk texts.
package storage

import (
	"context"
	"fmt"
)

// EmbeddingStore saves and loads vectors paired by position with chunk texts.
// Each store instance is bound to one location.
type EmbeddingStore interface {
	Save(ctx context.Context, vectors [][]float32, texts []string) error
	Load(ctx context.Context) ([][]float32, []string, error)
	Close() error
}

// CorruptStoreError reports persisted data whose declared shape does not match its payload.
// A store that fails this way must not be served.
type CorruptStoreError struct {
	Path   string
	Reason string
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt embedding store %s: %s", e.Path, e.Reason)
}

// Kind selects an EmbeddingStore implementation.
type Kind string

const (
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
)

// Location describes where a corpus's embeddings live.
type Location struct {
	Kind           Kind
	Corpus         string
	EmbeddingsPath string
	TextsPath      string
	DatabasePath   string
}

// Open returns the store for loc. Empty Kind means file.
func Open(loc Location) (EmbeddingStore, error) {
	switch loc.Kind {
	case KindFile, "":
		return NewFileStore(loc.EmbeddingsPath, loc.TextsPath), nil
	case KindSQLite:
		return NewSQLiteStore(loc.DatabasePath, loc.Corpus)
	default:
		return nil, fmt.Errorf("unknown store kind: %s (supported: file, sqlite)", loc.Kind)
	}
}

// Paths returns the on-disk artifacts of loc.
func (loc Location) Paths() []string {
	if loc.Kind == KindSQLite {
		return []string{loc.DatabasePath}
	}
	return []string{loc.EmbeddingsPath, loc.TextsPath}
}

func validatePair(vectors [][]float32, texts []string) (int, error) {
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("vectors and texts length mismatch: %d vectors, %d texts", len(vectors), len(texts))
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	dims := len(vectors[0])
	if dims == 0 {
		return 0, fmt.Errorf("vectors must not be empty")
	}
	for i, v := range vectors {
		if len(v) != dims {
			return 0, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dims)
		}
	}
	return dims, nil
}
