// Package answer turns a question into a grounded answer: it embeds the question,
// retrieves context from every corpus and asks the generator.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
)

// Upstream stages reported by UpstreamError.
const (
	StageEmbedding  = "embedding"
	StageGeneration = "generation"
)

const (
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultGenerateTimeout = 60 * time.Second
)

// ErrNoCatalog is returned when no catalog has been published.
var ErrNoCatalog = errors.New("no corpus catalog loaded")

// UpstreamError reports a failure of an external model call.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Pipeline answers questions against the catalog currently published in a snapshot.
// It is safe for concurrent use.
type Pipeline struct {
	embedder        embedding.Embedder
	generator       llm.Generator
	catalogs        *search.Snapshot
	topK            int
	embedTimeout    time.Duration
	generateTimeout time.Duration
	logger          *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets how many chunks are retrieved per corpus.
func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

// WithTimeouts bounds the embedding and generation calls. Zero keeps the default.
func WithTimeouts(embed, generate time.Duration) Option {
	return func(p *Pipeline) {
		if embed > 0 {
			p.embedTimeout = embed
		}
		if generate > 0 {
			p.generateTimeout = generate
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline over the catalogs published in snapshot.
func NewPipeline(embedder embedding.Embedder, generator llm.Generator, snapshot *search.Snapshot, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:        embedder,
		generator:       generator,
		catalogs:        snapshot,
		topK:            search.DefaultTopK,
		embedTimeout:    DefaultEmbedTimeout,
		generateTimeout: DefaultGenerateTimeout,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer runs one question through embedding, retrieval and generation.
// An empty retrieval still produces a generation call with an empty context.
func (p *Pipeline) Answer(ctx context.Context, question string) (*models.Answer, error) {
	start := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuestion
	}
	catalog := p.catalogs.Load()
	if catalog == nil {
		return nil, ErrNoCatalog
	}

	requestID := uuid.New().String()
	log := p.logger.With(zap.String("request_id", requestID))

	queryVector, err := p.embed(ctx, question)
	if err != nil {
		log.Warn("Embedding failed", zap.Error(err))
		return nil, &UpstreamError{Stage: StageEmbedding, Err: err}
	}

	combined, err := catalog.Retrieve(ctx, queryVector, p.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	log.Debug("Retrieved context",
		zap.Int("results", combined.Len()),
		zap.Int("corpora", len(catalog.Sources())))

	text, err := p.generate(ctx, RenderPrompt(combined.String(), question))
	if err != nil {
		log.Warn("Generation failed", zap.Error(err))
		return nil, &UpstreamError{Stage: StageGeneration, Err: err}
	}

	elapsed := time.Since(start)
	log.Info("Answered question",
		zap.Int("context_results", combined.Len()),
		zap.Duration("elapsed", elapsed))

	return &models.Answer{
		RequestID: requestID,
		Question:  question,
		Text:      strings.TrimSpace(text),
		Context:   combined,
		QueryTime: elapsed.Milliseconds(),
	}, nil
}

func (p *Pipeline) embed(ctx context.Context, question string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.embedTimeout)
	defer cancel()
	return p.embedder.Embed(ctx, question)
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.generateTimeout)
	defer cancel()
	return p.generator.Generate(ctx, SystemPrompt, prompt)
}
