package llm

import (
	"context"
)

// MockClient is a configurable mock for testing pipeline components.
// Set the function fields to control behavior; every prompt is recorded
// so tests can assert on what was sent.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked. If nil, returns
	// empty string and nil error.
	CompleteFunc func(ctx context.Context, prompt, systemMessage string) (string, error)

	// CompleteStreamFunc is called when CompleteStream is invoked. If
	// nil, the channel is closed immediately. Implementations must
	// close the channel themselves.
	CompleteStreamFunc func(ctx context.Context, prompt, systemMessage string, chunks chan<- string) error

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Call tracking for verification.
	CompleteCalls int
	StreamCalls   int
	Prompts       []string
}

// NewMockClient creates a mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{ModelName: "mock-model"}
}

// Complete implements CompletionClient.
func (m *MockClient) Complete(ctx context.Context, prompt, systemMessage string) (string, error) {
	m.CompleteCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

// CompleteStream implements CompletionClient.
func (m *MockClient) CompleteStream(ctx context.Context, prompt, systemMessage string, chunks chan<- string) error {
	m.StreamCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteStreamFunc != nil {
		return m.CompleteStreamFunc(ctx, prompt, systemMessage, chunks)
	}
	close(chunks)
	return nil
}

// Model implements CompletionClient.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}
