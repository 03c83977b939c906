package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_ArtifactChangeTriggersOnce(t *testing.T) {
	dir := t.TempDir()
	emb := filepath.Join(dir, "sklearn_embeddings.bin")
	texts := filepath.Join(dir, "sklearn_texts.json")

	var calls atomic.Int32
	w := NewWatcher([]string{emb, texts}, func() { calls.Add(1) }, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// A build writes several artifacts in quick succession.
	for _, p := range []string{emb, texts, emb} {
		if err := writeFile(p, "x"); err != nil {
			t.Fatal(err)
		}
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("expected onChange after artifact writes")
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("onChange called %d times, want 1", n)
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := NewWatcher([]string{filepath.Join(dir, "hf_index.flat")}, func() { calls.Add(1) }, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("onChange called %d times for an unrelated file", n)
	}
}

func TestWatcher_Tracks(t *testing.T) {
	w := NewWatcher([]string{"/data/kotae.db", "/data/a_index.flat"}, nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/data/kotae.db", true},
		{"/data/kotae.db-wal", true},
		{"/data/kotae.db-journal", true},
		{"/data/a_index.flat", true},
		{"/data/a_index.flat.tmp", false},
		{"/data/other.db", false},
		{"/elsewhere/kotae.db", false},
	}
	for _, tt := range tests {
		if got := w.tracks(tt.path); got != tt.want {
			t.Errorf("tracks(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if dirs := w.Directories(); len(dirs) != 1 || dirs[0] != "/data" {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestWatcher_Start_createsMissingDirectory(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "embeddings", "nested")

	w := NewWatcher([]string{filepath.Join(dir, "a_index.flat")}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("artifact directory should exist after Start: %v", err)
	}
}

func TestWatcher_StopDropsPending(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a_texts.json")
	var calls atomic.Int32
	w := NewWatcher([]string{p}, func() { calls.Add(1) }, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.schedule(p)
	w.Stop()
	w.Stop()
	time.Sleep(350 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("onChange called %d times after Stop", n)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
