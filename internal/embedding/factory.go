package embedding

import (
	"fmt"

	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const (
	// DefaultDimensions is the output size of all-MiniLM-L6-v2.
	DefaultDimensions = 384
	// DefaultMaxTokens is the ONNX input sequence length.
	DefaultMaxTokens = 256
)

// Provider names an Embedder implementation.
type Provider string

const (
	ProviderONNX   Provider = "onnx"
	ProviderOpenAI Provider = "openai"
	ProviderMock   Provider = "mock"
)

// Options selects and configures an Embedder.
type Options struct {
	Provider    Provider
	ModelPath   string
	VocabPath   string
	Dimensions  int
	MaxTokens   int
	CacheSize   int
	OpenAIModel string
	APIKey      string
	BaseURL     string
	// AllowFallback lets an unavailable ONNX model degrade to MockEmbedder.
	// Leave it off whenever the vectors are persisted or compared with persisted ones.
	AllowFallback bool
}

// New creates the embedder named by opts.Provider. An ONNX embedder that cannot be
// created is an error unless opts.AllowFallback is set, in which case New returns a
// MockEmbedder and logs a warning.
func New(opts Options, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	switch opts.Provider {
	case ProviderONNX, "":
		var tok Tokenizer = &SimpleTokenizer{}
		if opts.VocabPath != "" {
			wp, err := LoadWordPieceTokenizer(opts.VocabPath)
			if err != nil {
				logger.Warn("failed to load vocabulary, using simple tokenizer",
					zap.String("vocab_path", opts.VocabPath), zap.Error(err))
			} else {
				tok = wp
			}
		}
		e, err := NewONNXEmbedder(opts.ModelPath, tok, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
		if err != nil {
			if !opts.AllowFallback {
				return nil, fmt.Errorf("ONNX embedder unavailable (model %s): %w", opts.ModelPath, err)
			}
			logger.Warn("ONNX embedder unavailable, falling back to mock embedder",
				zap.String("model_path", opts.ModelPath), zap.Error(err))
			return NewMockEmbedder(opts.Dimensions), nil
		}
		return e, nil

	case ProviderOpenAI:
		var reqOpts []option.RequestOption
		if opts.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
		}
		return NewOpenAIEmbedder(opts.APIKey,
			WithOpenAIModel(opts.OpenAIModel),
			WithOpenAIDimensions(opts.Dimensions),
			WithOpenAICacheSize(opts.CacheSize),
			WithOpenAIRequestOptions(reqOpts...),
		)

	case ProviderMock:
		return NewMockEmbedder(opts.Dimensions), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, mock)", opts.Provider)
	}
}
