package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-3.5-turbo"

	// DefaultTemperature is the sampling temperature for answers.
	DefaultTemperature = 0.3

	// MaxRetries is the number of retries after a rate-limit response.
	MaxRetries = 3

	// BaseBackoff is the first wait; each retry doubles it up to MaxBackoff.
	BaseBackoff = 2 * time.Second

	// MaxBackoff caps the wait between retries.
	MaxBackoff = 32 * time.Second
)

// OpenAIGenerator calls the chat completions API.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	baseBackoff time.Duration
}

// OpenAIOption configures an OpenAIGenerator.
type OpenAIOption func(*OpenAIGenerator, *[]option.RequestOption)

// WithModel overrides the chat model.
func WithModel(model string) OpenAIOption {
	return func(g *OpenAIGenerator, _ *[]option.RequestOption) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) OpenAIOption {
	return func(g *OpenAIGenerator, _ *[]option.RequestOption) { g.temperature = t }
}

// WithMaxTokens caps completion length. Zero leaves it to the API default.
func WithMaxTokens(n int) OpenAIOption {
	return func(g *OpenAIGenerator, _ *[]option.RequestOption) { g.maxTokens = n }
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(_ *OpenAIGenerator, opts *[]option.RequestOption) {
		if url != "" {
			*opts = append(*opts, option.WithBaseURL(url))
		}
	}
}

// withBackoff shortens the retry wait; used by tests.
func withBackoff(d time.Duration) OpenAIOption {
	return func(g *OpenAIGenerator, _ *[]option.RequestOption) { g.baseBackoff = d }
}

// NewOpenAIGenerator creates a generator authenticated with apiKey. The client's own
// retries are disabled; rate limits are retried here with exponential backoff.
func NewOpenAIGenerator(apiKey string, opts ...OpenAIOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	g := &OpenAIGenerator{
		model:       DefaultModel,
		temperature: DefaultTemperature,
		baseBackoff: BaseBackoff,
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	for _, opt := range opts {
		opt(g, &reqOpts)
	}
	g.client = openai.NewClient(reqOpts...)
	return g, nil
}

// Model returns the chat model name.
func (g *OpenAIGenerator) Model() string { return g.model }

// Generate returns the trimmed content of the first completion choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(g.temperature),
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.maxTokens))
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.baseBackoff << (attempt - 1)
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		completion, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("OpenAI API call failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned")
		}
		return strings.TrimSpace(completion.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

var _ Generator = (*OpenAIGenerator)(nil)
