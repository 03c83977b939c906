package answer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/vector"
)

type stubEmbedder struct {
	vec   []float32
	err   error
	block bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return len(s.vec) }
func (s *stubEmbedder) Close() error    { return nil }

func testSnapshot(t *testing.T) *search.Snapshot {
	t.Helper()
	mk := func(name string, texts []string, vecs ...[]float32) *search.Source {
		idx, err := vector.NewFlatIndex(2)
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
		mk("sklearn", []string{"textA", "unrelated"}, []float32{0, 0}, []float32{10, 10}),
		mk("hf", []string{"textB"}, []float32{1, 0}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return search.NewSnapshot(cat)
}

func TestPipeline_Answer(t *testing.T) {
	gen := llm.NewMockGenerator("  Use fit().\n")
	p := NewPipeline(&stubEmbedder{vec: []float32{0, 0}}, gen, testSnapshot(t),
		WithTopK(1), WithLogger(zap.NewNop()))

	got, err := p.Answer(context.Background(), "  how do I train?  ")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "Use fit()." {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Question != "how do I train?" {
		t.Errorf("Question = %q", got.Question)
	}
	if got.RequestID == "" {
		t.Error("expected a request id")
	}
	if got.Context.String() != "textA\n\ntextB" {
		t.Errorf("context = %q", got.Context.String())
	}

	calls := gen.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 generate call, got %d", len(calls))
	}
	if calls[0].SystemPrompt != SystemPrompt {
		t.Errorf("system prompt = %q", calls[0].SystemPrompt)
	}
	if want := RenderPrompt("textA\n\ntextB", "how do I train?"); calls[0].UserPrompt != want {
		t.Errorf("user prompt = %q, want %q", calls[0].UserPrompt, want)
	}
}

func TestPipeline_DefaultTopK(t *testing.T) {
	p := NewPipeline(&stubEmbedder{vec: []float32{0, 0}}, llm.NewMockGenerator("ok"), testSnapshot(t))
	got, err := p.Answer(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	// sklearn holds 2 chunks and hf 1, both below the default of 3.
	if got.Context.Len() != 3 {
		t.Errorf("Len() = %d, want 3", got.Context.Len())
	}
}

func TestPipeline_EmptyQuestion(t *testing.T) {
	gen := llm.NewMockGenerator("unused")
	p := NewPipeline(&stubEmbedder{vec: []float32{0, 0}}, gen, testSnapshot(t))
	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := p.Answer(context.Background(), q); !errors.Is(err, models.ErrEmptyQuestion) {
			t.Errorf("Answer(%q) error = %v, want ErrEmptyQuestion", q, err)
		}
	}
	if len(gen.Calls()) != 0 {
		t.Error("generator must not be called for empty questions")
	}
}

func TestPipeline_ZeroResultsStillGenerates(t *testing.T) {
	gen := llm.NewMockGenerator("no idea")
	p := NewPipeline(&stubEmbedder{vec: []float32{0, 0}}, gen, testSnapshot(t), WithTopK(0))
	got, err := p.Answer(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if got.Context.Len() != 0 {
		t.Errorf("expected empty context, got %d results", got.Context.Len())
	}
	calls := gen.Calls()
	if len(calls) != 1 || calls[0].UserPrompt != RenderPrompt("", "q") {
		t.Errorf("unexpected generate calls: %+v", calls)
	}
}

func TestPipeline_UpstreamErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		embedder  *stubEmbedder
		generator *llm.MockGenerator
		stage     string
	}{
		{"embedding fails", &stubEmbedder{err: boom}, llm.NewMockGenerator("x"), StageEmbedding},
		{"generation fails", &stubEmbedder{vec: []float32{0, 0}}, &llm.MockGenerator{Err: boom}, StageGeneration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(tt.embedder, tt.generator, testSnapshot(t))
			_, err := p.Answer(context.Background(), "q")
			var up *UpstreamError
			if !errors.As(err, &up) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
			if up.Stage != tt.stage {
				t.Errorf("Stage = %q, want %q", up.Stage, tt.stage)
			}
			if !errors.Is(err, boom) {
				t.Error("UpstreamError should unwrap to the cause")
			}
		})
	}
}

func TestPipeline_EmbedTimeout(t *testing.T) {
	p := NewPipeline(&stubEmbedder{block: true}, llm.NewMockGenerator("x"), testSnapshot(t),
		WithTimeouts(20*time.Millisecond, 0))
	start := time.Now()
	_, err := p.Answer(context.Background(), "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("embed timeout was not applied")
	}
}

func TestPipeline_DimensionMismatchIsNotUpstream(t *testing.T) {
	p := NewPipeline(&stubEmbedder{vec: []float32{0, 0, 0}}, llm.NewMockGenerator("x"), testSnapshot(t))
	_, err := p.Answer(context.Background(), "q")
	var up *UpstreamError
	if err == nil || errors.As(err, &up) {
		t.Fatalf("expected a non-upstream error, got %v", err)
	}
	var dm *vector.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Errorf("expected DimensionMismatchError in chain, got %v", err)
	}
}

func TestPipeline_NoCatalog(t *testing.T) {
	p := NewPipeline(&stubEmbedder{vec: []float32{0, 0}}, llm.NewMockGenerator("x"), search.NewSnapshot(nil))
	if _, err := p.Answer(context.Background(), "q"); !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
}
