//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"unsafe"
)

// FAISSIndex wraps a FAISS IndexFlatL2. FAISS labels are insertion offsets, so they
// map directly onto store positions.
type FAISSIndex struct {
	index      *C.FaissIndex
	dimensions int
	sealed     atomic.Bool
}

// NewFAISSIndex creates an empty FAISS L2 index with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var flat *C.FaissIndexFlatL2
	if ret := C.faiss_IndexFlatL2_new_with(&flat, C.idx_t(dimensions)); ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}

	return &FAISSIndex{
		index:      (*C.FaissIndex)(unsafe.Pointer(flat)),
		dimensions: dimensions,
	}, nil
}

// LoadFAISSIndex reads an index written by Save. The returned index is sealed.
func LoadFAISSIndex(path string) (*FAISSIndex, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var index *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &index); ret != 0 {
		return nil, fmt.Errorf("%w: %s: %s", ErrCorruptIndex, path, faissLastError())
	}
	f := &FAISSIndex{index: index, dimensions: int(C.faiss_Index_d(index))}
	f.Seal()
	return f, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends vectors in order. Either all vectors are appended or none are.
func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	if f.sealed.Load() {
		return ErrIndexSealed
	}
	if err := checkDimensions(vectors, f.dimensions); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}

	n := len(vectors)
	flat := make([]float32, 0, n*f.dimensions)
	for _, vec := range vectors {
		flat = append(flat, vec...)
	}

	ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns the k nearest vectors by squared L2 distance, re-sorted by
// (distance, position) so ties resolve the same way as FlatIndex.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dimensions {
		return nil, &DimensionMismatchError{Expected: f.dimensions, Got: len(query), Position: -1}
	}
	ntotal := f.Size()
	if k <= 0 || ntotal == 0 {
		return nil, nil
	}
	if k > ntotal {
		k = ntotal
	}

	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	results := make([]Neighbor, 0, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 {
			continue
		}
		results = append(results, Neighbor{Position: int(labels[i]), Distance: distances[i]})
	}
	sort.Slice(results, func(i, j int) bool { return closer(results[i], results[j]) })
	return results, nil
}

// Seal marks the index read-only.
func (f *FAISSIndex) Seal() { f.sealed.Store(true) }

// Size returns the number of stored vectors.
func (f *FAISSIndex) Size() int {
	if f.index == nil {
		return 0
	}
	return int(C.faiss_Index_ntotal(f.index))
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int { return f.dimensions }

// Save writes the index in FAISS's native format.
func (f *FAISSIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	return nil
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string { return string(IndexTypeFAISS) }
