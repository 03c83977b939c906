package storage

import (
	"context"
	"testing"
)

func TestMemoryStore_LoadBeforeSave(t *testing.T) {
	if _, _, err := NewMemoryStore().Load(context.Background()); err == nil {
		t.Error("expected error loading an empty memory store")
	}
}

func TestMemoryStore_CopiesInput(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	vecs := [][]float32{{1, 2}}
	_ = m.Save(ctx, vecs, []string{"a"})
	vecs[0][0] = 42

	got, _, err := m.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got[0][0] != 1 {
		t.Errorf("stored vector was aliased: %v", got)
	}
}
