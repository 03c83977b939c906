package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/v3/option"
)

// fakeEmbeddingsServer answers /embeddings with vectors whose first component is the
// input's length, returned in reverse index order.
func fakeEmbeddingsServer(t *testing.T, dims int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		var req struct {
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Dimensions != dims {
			http.Error(w, fmt.Sprintf("dimensions=%d", req.Dimensions), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float64, dims)
			vec[0] = float64(len(req.Input[i]))
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func newTestOpenAIEmbedder(t *testing.T, url string, dims int) *OpenAIEmbedder {
	t.Helper()
	e, err := NewOpenAIEmbedder("test-key",
		WithOpenAIDimensions(dims),
		WithOpenAICacheSize(8),
		WithOpenAIRequestOptions(option.WithBaseURL(url+"/v1/"), option.WithMaxRetries(0)),
	)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedder_EmbedBatchOrderAndSplit(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingsServer(t, 3, &calls)
	defer srv.Close()
	e := newTestOpenAIEmbedder(t, srv.URL, 3)

	texts := make([]string, MaxOpenAIBatch+5)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Fatalf("vector %d out of order: %v", i, v)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
}

func TestOpenAIEmbedder_EmbedCaches(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingsServer(t, 4, &calls)
	defer srv.Close()
	e := newTestOpenAIEmbedder(t, srv.URL, 4)

	for i := 0; i < 3; i++ {
		v, err := e.Embed(context.Background(), "question")
		if err != nil {
			t.Fatal(err)
		}
		if len(v) != 4 || v[0] != 8 {
			t.Errorf("Embed = %v", v)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 request, got %d", calls.Load())
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingsServer(t, 4, &calls)
	defer srv.Close()
	e := newTestOpenAIEmbedder(t, srv.URL, 4)
	e.dimensions = 5
	if _, err := e.Embed(context.Background(), "q"); err == nil {
		t.Error("expected error when the server rejects or mismatches dimensions")
	}
}

func TestOpenAIEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()
	e := newTestOpenAIEmbedder(t, srv.URL, 2)
	if _, err := e.EmbedBatch(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error from failing server")
	}
}

func TestNewOpenAIEmbedder_NoKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder(""); !errors.Is(err, ErrAPIKeyNotSet) {
		t.Errorf("expected ErrAPIKeyNotSet, got %v", err)
	}
}
