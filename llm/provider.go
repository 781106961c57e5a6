package llm

import "context"

// Provider is the interface every model backend must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic", "ollama").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream sends a request and returns a channel of stream events.
	// The channel is closed after the finish or error event.
	Stream(ctx context.Context, req Request) (<-chan Event, error)
}

// Closer is implemented by providers that hold resources.
type Closer interface {
	Close() error
}
