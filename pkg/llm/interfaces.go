// Package llm provides completion clients for the query pipeline. Two
// providers are supported: any OpenAI-compatible endpoint and
// Anthropic. The factory picks the provider by which credential is
// configured.
package llm

import "context"

// CompletionClient is the interface the pipeline depends on. Use it for
// dependency injection so tests can substitute MockClient.
type CompletionClient interface {
	// Complete generates a single completion for the prompt.
	Complete(ctx context.Context, prompt, systemMessage string) (string, error)

	// CompleteStream generates a completion, sending text chunks to
	// the channel as they arrive. The channel is closed when the
	// stream ends. Used by the conversational branch only.
	CompleteStream(ctx context.Context, prompt, systemMessage string, chunks chan<- string) error

	// Model returns the configured model name.
	Model() string
}

// Compile-time interface checks.
var (
	_ CompletionClient = (*OpenAIClient)(nil)
	_ CompletionClient = (*AnthropicClient)(nil)
	_ CompletionClient = (*MockClient)(nil)
)
