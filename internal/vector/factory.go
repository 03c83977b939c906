package vector

import (
	"fmt"
	"os"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat uses the in-process exact brute-force index.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS uses a FAISS IndexFlatL2. Requires building with -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewVectorIndex creates an empty index of the specified type.
// Supported types: "flat" (default), "faiss".
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// LoadVectorIndex loads a sealed index of the given type from path.
func LoadVectorIndex(indexType, path string) (VectorIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("index file: %w", err)
	}
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		return LoadFlatIndex(path)
	case IndexTypeFAISS:
		return LoadFAISSIndex(path)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}

var (
	_ VectorIndex = (*FlatIndex)(nil)
	_ VectorIndex = (*FAISSIndex)(nil)
)
