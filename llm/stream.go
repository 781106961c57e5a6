package llm

import (
	"context"
	"strings"
	"sync"
)

// StreamResult carries the event channel of a streaming call and, once the
// stream has finished, the accumulated final response.
type StreamResult struct {
	events <-chan Event

	mu       sync.Mutex
	response *Response
}

// Events returns the read-only event channel.
func (sr *StreamResult) Events() <-chan Event {
	return sr.events
}

// Response returns the final response, or nil while the stream is live.
func (sr *StreamResult) Response() *Response {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.response
}

// StreamGenerate is the streaming counterpart of Generate. Tool loops are
// not run on streams; tool calls surface as events for the caller.
func StreamGenerate(ctx context.Context, opts GenerateOptions) (*StreamResult, error) {
	if opts.Client == nil {
		return nil, &ConfigError{BaseError{Message: "GenerateOptions.Client is required"}}
	}
	messages, err := opts.buildMessages()
	if err != nil {
		return nil, err
	}

	events, err := opts.Client.Stream(ctx, opts.request(messages))
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 64)
	sr := &StreamResult{events: out}

	go func() {
		defer close(out)
		acc := NewAccumulator()
		forwarding := true
		for ev := range events {
			acc.Add(ev)
			if !forwarding {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				// Caller abandoned the stream. Stop forwarding but keep
				// draining so the provider can close its channel.
				forwarding = false
			}
		}
		sr.mu.Lock()
		sr.response = acc.Response()
		sr.mu.Unlock()
	}()

	return sr, nil
}

// Accumulator collects stream events back into a complete Response.
type Accumulator struct {
	text     strings.Builder
	calls    []ToolCall
	finish   *FinishReason
	usage    *Usage
	response *Response
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add ingests one stream event.
func (a *Accumulator) Add(ev Event) {
	switch ev.Type {
	case EventTextDelta:
		a.text.WriteString(ev.Delta)
	case EventToolCall:
		if ev.ToolCall != nil {
			a.calls = append(a.calls, *ev.ToolCall)
		}
	case EventFinish:
		a.finish = ev.FinishReason
		a.usage = ev.Usage
		a.response = ev.Response
	}
}

// Text returns the text accumulated so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Response returns the finished response. If the provider supplied a full
// response on the finish event that one wins; otherwise a response is built
// from the accumulated parts.
func (a *Accumulator) Response() *Response {
	if a.response != nil {
		return a.response
	}

	parts := []Part{TextPart(a.text.String())}
	for _, tc := range a.calls {
		parts = append(parts, ToolCallPart(tc.ID, tc.Name, tc.Arguments))
	}

	fr := FinishReason{Reason: "stop"}
	if a.finish != nil {
		fr = *a.finish
	}
	var usage Usage
	if a.usage != nil {
		usage = *a.usage
	}

	return &Response{
		Message:      Message{Role: RoleAssistant, Parts: parts},
		FinishReason: fr,
		Usage:        usage,
	}
}
