package workflow

import (
	"context"
	"strings"
	"sync"

	"github.com/martinemde/llmflow/llm"
)

// scriptProvider answers each request through a respond function and keeps a
// concurrency-safe log of the requests it saw.
type scriptProvider struct {
	respond func(req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
	current  int
	peak     int
}

func (p *scriptProvider) Name() string { return "mock" }

func (p *scriptProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.current++
	if p.current > p.peak {
		p.peak = p.current
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.current--
		p.mu.Unlock()
	}()

	text, err := p.respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{
		Provider:     "mock",
		Message:      llm.AssistantMessage(text),
		FinishReason: llm.FinishReason{Reason: "stop"},
		Usage:        llm.Usage{InputTokens: 1, OutputTokens: 1, TotalTokens: 2},
	}, nil
}

func (p *scriptProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.Event, error) {
	ch := make(chan llm.Event)
	close(ch)
	return ch, nil
}

func (p *scriptProvider) seen() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}

func clientWith(p llm.Provider) *llm.Client {
	return llm.NewClient(llm.WithProvider("mock", p))
}

// lastUserText returns the text of the last user message in the request.
func lastUserText(req llm.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Text()
		}
	}
	return ""
}

func systemText(req llm.Request) string {
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			return m.Text()
		}
	}
	return ""
}

// noRetry keeps tests fast when a scripted call is expected to fail.
func noRetry() *llm.RetryPolicy {
	return &llm.RetryPolicy{MaxRetries: 0}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
