package llm

import (
	"context"
	"sync"
)

// MockProvider is a mock LLM provider for testing
type MockProvider struct {
	mu       sync.Mutex
	replies  []string
	err      error
	prompts  []string
	callsFor map[string]int
}

func NewMockProvider(replies ...string) *MockProvider {
	return &MockProvider{replies: replies, callsFor: make(map[string]int)}
}

func (m *MockProvider) Name() string { return "mock" }
func (m *MockProvider) IsAvailable(ctx context.Context) bool { return true }

func (m *MockProvider) Generate(ctx context.Context, prompt string) (*Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	m.callsFor[prompt]++
	if m.err != nil {
		return nil, m.err
	}

	out := ""
	if len(m.replies) > 0 {
		out = m.replies[0]
		if len(m.replies) > 1 {
			m.replies = m.replies[1:]
		}
	}
	return &Reply{Stdout: out, Model: "mock-model"}, nil
}

func (m *MockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
