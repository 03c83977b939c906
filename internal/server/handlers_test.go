package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/vector"
)

type stubAnswerer struct {
	answer *models.Answer
	err    error
	got    string
}

func (s *stubAnswerer) Answer(ctx context.Context, question string) (*models.Answer, error) {
	s.got = question
	return s.answer, s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func testSnapshot(t *testing.T, dims int) *search.Snapshot {
	t.Helper()
	mk := func(name string, texts ...string) *search.Source {
		emb := embedding.NewMockEmbedder(dims)
		vecs, err := emb.EmbedBatch(context.Background(), texts)
		if err != nil {
			t.Fatal(err)
		}
		idx, err := vector.NewFlatIndex(dims)
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(context.Background(), vecs); err != nil {
			t.Fatal(err)
		}
		src, err := search.NewSource(name, idx, texts)
		if err != nil {
			t.Fatal(err)
		}
		return src
	}
	cat, err := search.NewCatalog("flat",
		mk("sklearn", "fit trains a model", "predict returns labels"),
		mk("hf", "pipelines wrap models"),
	)
	if err != nil {
		t.Fatal(err)
	}
	return search.NewSnapshot(cat)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleRoot(t *testing.T) {
	srv := NewServer(&stubAnswerer{}, testSnapshot(t, 4), testConfig(t), zap.NewNop())
	w := do(t, srv.Handler(), http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if got := w.Body.String(); got != "RAG chatbot API is running!" {
		t.Errorf("body = %q", got)
	}
}

func TestHandleQuery(t *testing.T) {
	gen := llm.NewMockGenerator("Call fit() on the estimator.")
	pipeline := answer.NewPipeline(embedding.NewMockEmbedder(4), gen, testSnapshot(t, 4), answer.WithTopK(1))
	srv := NewServer(pipeline, testSnapshot(t, 4), testConfig(t), zap.NewNop())

	w := do(t, srv.Handler(), http.MethodPost, "/query", `{"question": "How do I train?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", w.Code, w.Body.String())
	}
	var out map[string]string
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out["answer"] != "Call fit() on the estimator." {
		t.Errorf("response = %v", out)
	}
	calls := gen.Calls()
	if len(calls) != 1 || !strings.Contains(calls[0].UserPrompt, "Question: How do I train?") {
		t.Errorf("generator calls = %+v", calls)
	}
}

func TestHandleQuery_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"invalid json", `{"question":`, nil, http.StatusBadRequest},
		{"missing question", `{}`, nil, http.StatusBadRequest},
		{"blank question", `{"question": "   "}`, nil, http.StatusBadRequest},
		{"embedding upstream", `{"question": "q"}`, &answer.UpstreamError{Stage: answer.StageEmbedding, Err: errors.New("timeout")}, http.StatusBadGateway},
		{"generation upstream", `{"question": "q"}`, &answer.UpstreamError{Stage: answer.StageGeneration, Err: errors.New("429")}, http.StatusBadGateway},
		{"no catalog", `{"question": "q"}`, answer.ErrNoCatalog, http.StatusServiceUnavailable},
		{"internal", `{"question": "q"}`, errors.New("position out of range"), http.StatusInternalServerError},
		{"body too large", `{"question": "` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`, nil, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAnswerer{err: tt.err}
			srv := NewServer(stub, testSnapshot(t, 4), testConfig(t), zap.NewNop())
			w := do(t, srv.Handler(), http.MethodPost, "/query", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", w.Code, tt.wantStatus)
			}
			var out map[string]string
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out["error"] == "" {
				t.Errorf("expected error message, got %v", out)
			}
		})
	}
}

func TestHandleQuery_TrimsQuestion(t *testing.T) {
	stub := &stubAnswerer{answer: &models.Answer{Text: "ok"}}
	srv := NewServer(stub, testSnapshot(t, 4), testConfig(t), zap.NewNop())
	w := do(t, srv.Handler(), http.MethodPost, "/query", `{"question": "  what?  "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if stub.got != "what?" {
		t.Errorf("answerer got %q", stub.got)
	}
}

func TestHandleAnswer(t *testing.T) {
	stub := &stubAnswerer{answer: &models.Answer{
		RequestID: "req-1",
		Question:  "q",
		Text:      "a",
		Context:   &models.CombinedContext{Results: []*models.QueryResult{{Source: "hf", Text: "t", Distance: 0.5}}},
	}}
	srv := NewServer(stub, testSnapshot(t, 4), testConfig(t), zap.NewNop())
	w := do(t, srv.Handler(), http.MethodPost, "/api/v1/answer", `{"question": "q"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.Answer
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.RequestID != "req-1" || out.Text != "a" || out.Context.Len() != 1 || out.Context.Results[0].Source != "hf" {
		t.Errorf("answer = %+v", out)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(&stubAnswerer{}, testSnapshot(t, 4), testConfig(t), zap.NewNop())
	w := do(t, srv.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandleStatus(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "sklearn_index.flat")
	if err := os.WriteFile(indexPath, make([]byte, 24), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t)
	cfg.Corpora = []config.CorpusConfig{{Name: "sklearn", Store: "file", IndexPath: indexPath}}

	srv := NewServer(&stubAnswerer{}, testSnapshot(t, 4), cfg, zap.NewNop())
	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var st models.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.TotalVectors != 3 || st.Dimensions != 4 || st.IndexType != "flat" || len(st.Corpora) != 2 {
		t.Errorf("status = %+v", st)
	}
	if st.DiskUsageBytes != 24 {
		t.Errorf("disk usage = %d, want 24", st.DiskUsageBytes)
	}
}

func TestHandleStatus_NoCatalog(t *testing.T) {
	srv := NewServer(&stubAnswerer{}, search.NewSnapshot(nil), testConfig(t), zap.NewNop())
	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	srv := NewServer(&stubAnswerer{}, testSnapshot(t, 4), testConfig(t), zap.NewNop())
	w := do(t, srv.Handler(), http.MethodGet, "/query", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /query: got %d, want 405", w.Code)
	}
}
