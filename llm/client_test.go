package llm

import (
	"context"
	"errors"
	"testing"
)

// mockProvider is a test double for Provider.
type mockProvider struct {
	name   string
	resp   *Response
	err    error
	events []Event
	calls  int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockProvider) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan Event, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func newMockProvider(name, text string) *mockProvider {
	return &mockProvider{
		name: name,
		resp: &Response{
			ID:           "resp_test",
			Model:        "test-model",
			Provider:     name,
			Message:      AssistantMessage(text),
			FinishReason: FinishReason{Reason: "stop"},
			Usage:        Usage{InputTokens: 5, OutputTokens: 7, TotalTokens: 12},
		},
	}
}

func TestClientComplete(t *testing.T) {
	client := NewClient(WithProvider("mock", newMockProvider("mock", "Hello!")))

	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", resp.Text())
	}
	if resp.Provider != "mock" {
		t.Errorf("expected provider mock, got %q", resp.Provider)
	}
}

func TestClientRouting(t *testing.T) {
	openai := newMockProvider("openai", "from openai")
	anthropic := newMockProvider("anthropic", "from anthropic")
	client := NewClient(
		WithProvider("openai", openai),
		WithProvider("anthropic", anthropic),
		WithDefaultProvider("openai"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "claude-opus-4-6",
		Provider: "anthropic",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "from anthropic" {
		t.Errorf("explicit provider ignored, got %q", resp.Text())
	}

	resp, err = client.Complete(context.Background(), Request{
		Model:    "whatever",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "from openai" {
		t.Errorf("default provider ignored, got %q", resp.Text())
	}
}

func TestClientCatalogRouting(t *testing.T) {
	anthropic := newMockProvider("anthropic", "routed by catalog")
	client := NewClient(
		WithProvider("anthropic", anthropic),
		WithProvider("openai", newMockProvider("openai", "wrong")),
	)
	// Two providers, no default: the model catalog decides.
	resp, err := client.Complete(context.Background(), Request{
		Model:    "claude-sonnet-4-5",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "routed by catalog" {
		t.Errorf("catalog routing failed, got %q", resp.Text())
	}
}

func TestClientNoProvider(t *testing.T) {
	client := NewClient()
	_, err := client.Complete(context.Background(), Request{Model: "unknown"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestClientUnregisteredProvider(t *testing.T) {
	client := NewClient(WithProvider("mock", newMockProvider("mock", "x")))
	_, err := client.Complete(context.Background(), Request{Provider: "missing"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(tag string) Middleware {
		return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
			order = append(order, tag+"-before")
			resp, err := next(ctx, req)
			order = append(order, tag+"-after")
			return resp, err
		}
	}

	client := NewClient(
		WithProvider("mock", newMockProvider("mock", "ok")),
		WithMiddleware(mw("outer"), mw("inner")),
	)
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("x")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer-before", "inner-before", "inner-after", "outer-after"}
	if len(order) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("middleware order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestClientMiddlewareRewritesRequest(t *testing.T) {
	mock := newMockProvider("mock", "ok")
	var seen string
	capture := func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		req.Messages = append([]Message{SystemMessage("injected")}, req.Messages...)
		seen = req.Messages[0].Text()
		return next(ctx, req)
	}
	client := NewClient(WithProvider("mock", mock), WithMiddleware(capture))
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("x")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "injected" {
		t.Errorf("middleware did not rewrite request, saw %q", seen)
	}
}

func TestClientStream(t *testing.T) {
	mock := &mockProvider{
		name: "mock",
		events: []Event{
			{Type: EventStart},
			{Type: EventTextDelta, Delta: "Hel"},
			{Type: EventTextDelta, Delta: "lo"},
			{Type: EventFinish, FinishReason: &FinishReason{Reason: "stop"}},
		},
	}
	client := NewClient(WithProvider("mock", mock))

	events, err := client.Stream(context.Background(), Request{Messages: []Message{UserMessage("x")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc := NewAccumulator()
	for ev := range events {
		acc.Add(ev)
	}
	if got := acc.Text(); got != "Hello" {
		t.Errorf("accumulated %q, want %q", got, "Hello")
	}
}
