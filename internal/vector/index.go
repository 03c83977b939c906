// Package vector provides exact nearest-neighbor search over fixed-dimension vectors.
package vector

import (
	"context"
	"errors"
	"fmt"
)

// ErrIndexSealed is returned by Add once an index has been published for querying.
var ErrIndexSealed = errors.New("vector index is sealed")

// ErrCorruptIndex is returned when a persisted index cannot be decoded.
var ErrCorruptIndex = errors.New("corrupt vector index")

// VectorIndex stores vectors by insertion position and answers k-NN queries by
// squared Euclidean distance. Add is only valid during the offline build; after
// Seal the index is read-only and safe for concurrent Search without locking.
type VectorIndex interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Seal()
	Size() int
	Dimensions() int
	Save(path string) error
	Type() string
	Close() error
}

// Neighbor is a single search hit. Position is the row index into the backing store.
type Neighbor struct {
	Position int
	Distance float32
}

// DimensionMismatchError reports a vector whose length differs from the index dimension.
// Position is the offending vector's offset within the Add call, or -1 for a query.
type DimensionMismatchError struct {
	Expected int
	Got      int
	Position int
}

func (e *DimensionMismatchError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("query dimension mismatch: got %d, expected %d", e.Got, e.Expected)
	}
	return fmt.Sprintf("vector %d dimension mismatch: got %d, expected %d", e.Position, e.Got, e.Expected)
}

// closer reports whether a ranks before b: smaller distance first, then smaller position.
func closer(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Position < b.Position
}

func checkDimensions(vectors [][]float32, dimensions int) error {
	for i, v := range vectors {
		if len(v) != dimensions {
			return &DimensionMismatchError{Expected: dimensions, Got: len(v), Position: i}
		}
	}
	return nil
}
