package llm

import (
	"context"
	"fmt"
	"sync"
)

// Call records one Generate invocation.
type Call struct {
	SystemPrompt string
	UserPrompt   string
}

// MockGenerator is a deterministic Generator for tests. It returns Answer, or an echo of
// the user prompt when Answer is empty, or Err when set. Calls are recorded.
type MockGenerator struct {
	Answer string
	Err    error

	mu    sync.Mutex
	calls []Call
}

// NewMockGenerator returns a generator that always answers with answer.
func NewMockGenerator(answer string) *MockGenerator {
	return &MockGenerator{Answer: answer}
}

func (m *MockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Answer != "" {
		return m.Answer, nil
	}
	return fmt.Sprintf("echo: %s", userPrompt), nil
}

// Calls returns a copy of the recorded calls.
func (m *MockGenerator) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

var _ Generator = (*MockGenerator)(nil)
