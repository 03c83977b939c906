// Package llm generates answer text from a system prompt and a user prompt.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrAPIKeyNotSet is returned when an OpenAI generator is created without an API key.
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

// ErrMaxRetriesExceeded is returned when rate limiting persists through every retry.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Generator produces a completion for a prompt pair.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options selects and configures a Generator.
type Options struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
	BaseURL     string
}

// New creates the generator named by opts.Provider ("openai" or "mock").
func New(opts Options) (Generator, error) {
	switch opts.Provider {
	case "openai", "":
		return NewOpenAIGenerator(opts.APIKey,
			WithModel(opts.Model),
			WithTemperature(opts.Temperature),
			WithMaxTokens(opts.MaxTokens),
			WithBaseURL(opts.BaseURL),
		)
	case "mock":
		return NewMockGenerator(""), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s (supported: openai, mock)", opts.Provider)
	}
}
