package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestSQLiteStore_MultipleCorpora(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kotae.db")

	a, err := NewSQLiteStore(path, "sklearn")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewSQLiteStore(path, "hf")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.Save(ctx, [][]float32{{1, 1}}, []string{"from sklearn"}); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(ctx, [][]float32{{2, 2, 2}, {3, 3, 3}}, []string{"hf 0", "hf 1"}); err != nil {
		t.Fatal(err)
	}

	_, texts, err := a.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(texts) != 1 || texts[0] != "from sklearn" {
		t.Errorf("sklearn texts = %v", texts)
	}
	vecs, _, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || len(vecs[1]) != 3 {
		t.Errorf("hf vectors = %v", vecs)
	}

	names, err := a.Corpora(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "hf" || names[1] != "sklearn" {
		t.Errorf("Corpora = %v", names)
	}
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "k.db"), "c")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_ = s.Save(ctx, [][]float32{{1}, {2}, {3}}, []string{"a", "b", "c"})
	if err := s.Save(ctx, [][]float32{{9}}, []string{"z"}); err != nil {
		t.Fatal(err)
	}
	vecs, texts, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 1 || texts[0] != "z" || vecs[0][0] != 9 {
		t.Errorf("after replace: %v %v", vecs, texts)
	}
}

func TestSQLiteStore_LoadCorrupt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
	}{
		{"missing row", `DELETE FROM embeddings WHERE position = 0`},
		{"header count", `UPDATE corpora SET count = 5`},
		{"negative count", `UPDATE corpora SET count = -1`},
		{"huge count", `UPDATE corpora SET count = 9223372036854775807`},
		{"negative dimension", `UPDATE corpora SET dimension = -3`},
		{"zero dimension", `UPDATE corpora SET dimension = 0`},
		{"blob length", `UPDATE embeddings SET vector = X'0000' WHERE position = 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "k.db"), "c")
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()
			if err := s.Save(ctx, sampleVectors, sampleTexts); err != nil {
				t.Fatal(err)
			}
			if _, err := s.db.Exec(tt.query); err != nil {
				t.Fatal(err)
			}
			_, _, err = s.Load(ctx)
			var cse *CorruptStoreError
			if !errors.As(err, &cse) {
				t.Fatalf("expected CorruptStoreError, got %v", err)
			}
		})
	}
}

func TestSQLiteStore_UnknownCorpus(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "k.db"), "missing")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, _, err := s.Load(context.Background()); err == nil {
		t.Error("expected error for unknown corpus")
	}
}

func TestNewSQLiteStore_RequiresCorpus(t *testing.T) {
	if _, err := NewSQLiteStore(filepath.Join(t.TempDir(), "k.db"), ""); err == nil {
		t.Error("expected error for empty corpus name")
	}
}
