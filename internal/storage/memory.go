package storage

import (
	"context"
	"errors"
	"sync"
)

var errMemoryStoreEmpty = errors.New("memory store has no saved embeddings")

// MemoryStore is an in-process EmbeddingStore. Save and Load copy their inputs.
type MemoryStore struct {
	mu      sync.RWMutex
	vectors [][]float32
	texts   []string
	saved   bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(ctx context.Context, vectors [][]float32, texts []string) error {
	if _, err := validatePair(vectors, texts); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = copyVectors(vectors)
	m.texts = append([]string(nil), texts...)
	m.saved = true
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) ([][]float32, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.saved {
		return nil, nil, errMemoryStoreEmpty
	}
	return copyVectors(m.vectors), append([]string(nil), m.texts...), nil
}

func (m *MemoryStore) Close() error { return nil }

func copyVectors(in [][]float32) [][]float32 {
	out := make([][]float32, len(in))
	for i, v := range in {
		out[i] = append([]float32(nil), v...)
	}
	return out
}
