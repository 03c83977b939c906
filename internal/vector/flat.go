package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the row count above which distance computation is sharded
// across GOMAXPROCS goroutines.
const parallelThreshold = 4096

const flatHeaderSize = 8

// FlatIndex is an exact brute-force index storing vectors contiguously in row-major order.
// Results are identical regardless of whether the scan runs serially or sharded.
type FlatIndex struct {
	dimensions int
	data       []float32
	sealed     atomic.Bool
}

// NewFlatIndex creates an empty flat index for vectors of the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Add appends vectors at positions Size()..Size()+len(vectors)-1. Either all vectors
// are appended or none are.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	if f.sealed.Load() {
		return ErrIndexSealed
	}
	if err := checkDimensions(vectors, f.dimensions); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	grown := make([]float32, len(f.data), len(f.data)+len(vectors)*f.dimensions)
	copy(grown, f.data)
	for _, v := range vectors {
		grown = append(grown, v...)
	}
	f.data = grown
	return nil
}

// Search returns the k nearest vectors to query by squared L2 distance, ordered by
// (distance, position). k larger than Size is clamped; k <= 0 yields no results.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dimensions {
		return nil, &DimensionMismatchError{Expected: f.dimensions, Got: len(query), Position: -1}
	}
	n := f.Size()
	if k <= 0 || n == 0 {
		return nil, nil
	}
	distances, err := f.distances(ctx, query, n)
	if err != nil {
		return nil, err
	}
	return selectNearest(distances, k), nil
}

func (f *FlatIndex) distances(ctx context.Context, query []float32, n int) ([]float32, error) {
	out := make([]float32, n)
	if n < parallelThreshold {
		f.scan(query, out, 0, n)
		return out, ctx.Err()
	}

	shards := runtime.GOMAXPROCS(0)
	per := (n + shards - 1) / shards
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += per {
		start, end := start, min(start+per, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f.scan(query, out, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *FlatIndex) scan(query, out []float32, start, end int) {
	d := f.dimensions
	for i := start; i < end; i++ {
		out[i] = SquaredL2(f.data[i*d:(i+1)*d], query)
	}
}

// Vector returns a copy of the vector stored at position, or false when out of range.
func (f *FlatIndex) Vector(position int) ([]float32, bool) {
	if position < 0 || position >= f.Size() {
		return nil, false
	}
	d := f.dimensions
	return append([]float32(nil), f.data[position*d:(position+1)*d]...), true
}

// Seal marks the index read-only.
func (f *FlatIndex) Seal() { f.sealed.Store(true) }

// Sealed reports whether Seal has been called.
func (f *FlatIndex) Sealed() bool { return f.sealed.Load() }

// Size returns the number of stored vectors.
func (f *FlatIndex) Size() int { return len(f.data) / f.dimensions }

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int { return f.dimensions }

// Save writes the index as a little-endian header (dimensions, count) followed by
// the float32 payload.
func (f *FlatIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	buf := make([]byte, flatHeaderSize, flatHeaderSize+len(f.data)*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.dimensions))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.Size()))
	buf = append(buf, EncodeFloat32s(f.data)...)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFlatIndex reads an index written by Save. The returned index is sealed.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if len(raw) < flatHeaderSize {
		return nil, fmt.Errorf("%w: %s: short header", ErrCorruptIndex, path)
	}
	dims := int(binary.LittleEndian.Uint32(raw[0:4]))
	count := int(binary.LittleEndian.Uint32(raw[4:8]))
	if dims <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid dimension %d", ErrCorruptIndex, path, dims)
	}
	payload := len(raw) - flatHeaderSize
	if payload%4 != 0 || (payload/4)%dims != 0 || payload/4/dims != count {
		return nil, fmt.Errorf("%w: %s: payload of %d bytes does not hold %d vectors of dimension %d",
			ErrCorruptIndex, path, payload, count, dims)
	}
	f := &FlatIndex{dimensions: dims, data: DecodeFloat32s(raw[flatHeaderSize:])}
	f.Seal()
	return f, nil
}

// Close releases the vector data.
func (f *FlatIndex) Close() error {
	f.data = nil
	return nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string { return string(IndexTypeFlat) }
