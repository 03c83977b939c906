package vector

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func newFlat(t *testing.T, dims int, vecs ...[]float32) *FlatIndex {
	t.Helper()
	idx, err := NewFlatIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(context.Background(), vecs); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestFlatIndex_NearestNeighbor(t *testing.T) {
	idx := newFlat(t, 2, []float32{0, 0}, []float32{10, 10})
	got, err := idx.Search(context.Background(), []float32{1, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Position != 0 || got[0].Distance != 2.0 {
		t.Errorf("got %+v, want position 0 distance 2.0", got[0])
	}
}

func TestFlatIndex_Ordering(t *testing.T) {
	idx := newFlat(t, 1, []float32{5}, []float32{1}, []float32{3}, []float32{0})
	got, err := idx.Search(context.Background(), []float32{0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{3, 1, 2, 0}
	for i, w := range want {
		if got[i].Position != w {
			t.Errorf("rank %d: position=%d, want %d", i, got[i].Position, w)
		}
	}
}

func TestFlatIndex_TiesBreakByPosition(t *testing.T) {
	idx := newFlat(t, 2,
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{-1, 0},
		[]float32{0, -1},
	)
	got, err := idx.Search(context.Background(), []float32{0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Position != 0 || got[1].Position != 1 {
		t.Errorf("ties should resolve to lowest positions, got %+v", got)
	}
}

func TestFlatIndex_KBounds(t *testing.T) {
	idx := newFlat(t, 2, []float32{0, 0}, []float32{1, 1})
	ctx := context.Background()

	tests := []struct {
		name string
		k    int
		want int
	}{
		{"zero", 0, 0},
		{"negative", -3, 0},
		{"exact", 2, 2},
		{"clamped", 10, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search(ctx, []float32{0, 0}, tt.k)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("k=%d: got %d results, want %d", tt.k, len(got), tt.want)
			}
		})
	}
}

func TestFlatIndex_SearchEmpty(t *testing.T) {
	idx := newFlat(t, 3)
	got, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx := newFlat(t, 3, []float32{1, 0, 0})
	ctx := context.Background()

	err := idx.Add(ctx, [][]float32{{1, 0, 0}, {1, 0}})
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("Add: expected DimensionMismatchError, got %v", err)
	}
	if dm.Expected != 3 || dm.Got != 2 || dm.Position != 1 {
		t.Errorf("unexpected error fields: %+v", dm)
	}
	if idx.Size() != 1 {
		t.Errorf("failed Add must not append, size=%d", idx.Size())
	}

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	if !errors.As(err, &dm) {
		t.Fatalf("Search: expected DimensionMismatchError, got %v", err)
	}
	if dm.Position != -1 {
		t.Errorf("query mismatch should report position -1, got %d", dm.Position)
	}
}

func TestFlatIndex_Sealed(t *testing.T) {
	idx := newFlat(t, 2, []float32{0, 0})
	idx.Seal()
	if !idx.Sealed() {
		t.Fatal("expected sealed")
	}
	if err := idx.Add(context.Background(), [][]float32{{1, 1}}); !errors.Is(err, ErrIndexSealed) {
		t.Errorf("Add after Seal: got %v, want ErrIndexSealed", err)
	}
	if _, err := idx.Search(context.Background(), []float32{0, 0}, 1); err != nil {
		t.Errorf("Search after Seal: %v", err)
	}
}

func TestFlatIndex_Vector(t *testing.T) {
	idx := newFlat(t, 2, []float32{1, 2}, []float32{3, 4})
	v, ok := idx.Vector(1)
	if !ok || v[0] != 3 || v[1] != 4 {
		t.Errorf("Vector(1) = %v, %v", v, ok)
	}
	v[0] = 99
	if again, _ := idx.Vector(1); again[0] != 3 {
		t.Error("Vector should return a copy")
	}
	if _, ok := idx.Vector(2); ok {
		t.Error("Vector(2) should be out of range")
	}
}

func TestFlatIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "index.bin")
	idx := newFlat(t, 3, []float32{1, 0, 0}, []float32{0, 1, 0}, []float32{0, 0, 1})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFlatIndex(path)
	if err != nil {
		t.Fatalf("LoadFlatIndex: %v", err)
	}
	if loaded.Size() != 3 || loaded.Dimensions() != 3 {
		t.Errorf("loaded size=%d dims=%d", loaded.Size(), loaded.Dimensions())
	}
	if !loaded.Sealed() {
		t.Error("loaded index should be sealed")
	}
	got, err := loaded.Search(context.Background(), []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Position != 2 || got[0].Distance != 0 {
		t.Errorf("Search after load: %+v", got)
	}
}

func TestLoadFlatIndex_Corrupt(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{1, 2, 3}},
		{"zero dimension", []byte{0, 0, 0, 0, 1, 0, 0, 0}},
		{"truncated payload", []byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}},
		{"size overflows int", []byte{0, 0, 0, 128, 0, 0, 0, 128}},
		{"count without payload", []byte{1, 0, 0, 0, 0, 0, 0, 128}},
		{"partial float", []byte{1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFlatIndex(path); !errors.Is(err, ErrCorruptIndex) {
				t.Errorf("expected ErrCorruptIndex, got %v", err)
			}
		})
	}
}

func TestFlatIndex_ParallelMatchesSerial(t *testing.T) {
	const dims = 8
	n := parallelThreshold + 123
	rng := rand.New(rand.NewSource(7))
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dims)
		for j := range v {
			// coarse values produce many exact ties
			v[j] = float32(rng.Intn(4))
		}
		vecs[i] = v
	}
	idx := newFlat(t, dims, vecs...)
	query := make([]float32, dims)

	got, err := idx.Search(context.Background(), query, 25)
	if err != nil {
		t.Fatal(err)
	}

	serial := make([]float32, n)
	idx.scan(query, serial, 0, n)
	want := selectNearest(serial, 25)
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFlatIndex_SearchCanceled(t *testing.T) {
	n := parallelThreshold * 2
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = []float32{float32(i)}
	}
	idx := newFlat(t, 1, vecs...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Search(ctx, []float32{0}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func BenchmarkFlatIndex_Search(b *testing.B) {
	const dims = 384
	idx, _ := NewFlatIndex(dims)
	rng := rand.New(rand.NewSource(1))
	vecs := make([][]float32, 10000)
	for i := range vecs {
		v := make([]float32, dims)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	_ = idx.Add(context.Background(), vecs)
	idx.Seal()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(context.Background(), vecs[i%len(vecs)], 3)
	}
}
