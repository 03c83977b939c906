package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// MaxOpenAIBatch is the largest number of inputs sent in one embeddings request.
const MaxOpenAIBatch = 100

// DefaultOpenAIModel is the embeddings model used when none is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// ErrAPIKeyNotSet is returned when the OpenAI embedder has no API key.
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

// OpenAIEmbedder calls the OpenAI embeddings API. Requests ask for the configured
// dimension so vectors match the index.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	cache      *EmbeddingCache
}

type openAIOptions struct {
	model      string
	dimensions int
	cacheSize  int
	clientOpts []option.RequestOption
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*openAIOptions)

// WithOpenAIModel overrides the embeddings model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *openAIOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithOpenAIDimensions sets the requested vector dimension.
func WithOpenAIDimensions(dims int) OpenAIOption {
	return func(o *openAIOptions) { o.dimensions = dims }
}

// WithOpenAICacheSize sets the LRU cache capacity for single-text lookups.
func WithOpenAICacheSize(n int) OpenAIOption {
	return func(o *openAIOptions) { o.cacheSize = n }
}

// WithOpenAIRequestOptions passes options (base URL, retries) to the client.
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(o *openAIOptions) { o.clientOpts = append(o.clientOpts, opts...) }
}

// NewOpenAIEmbedder creates an embedder authenticated with apiKey.
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	o := openAIOptions{model: DefaultOpenAIModel, dimensions: DefaultDimensions}
	for _, opt := range opts {
		opt(&o)
	}
	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, o.clientOpts...)
	return &OpenAIEmbedder{
		client:     openai.NewClient(clientOpts...),
		model:      o.model,
		dimensions: o.dimensions,
		cache:      NewEmbeddingCache(o.cacheSize),
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	vecs, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vecs[0])
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most MaxOpenAIBatch inputs.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for from := 0; from < len(texts); from += MaxOpenAIBatch {
		to := min(from+MaxOpenAIBatch, len(texts))
		vecs, err := e.request(ctx, texts[from:to])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	vecs := make([][]float32, len(data))
	for i, d := range data {
		if e.dimensions > 0 && len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(d.Embedding), e.dimensions)
		}
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		vecs[i] = v
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Model returns the embeddings model name.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error { return nil }
