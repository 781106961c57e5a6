package llm

import (
	"context"
	"testing"
	"time"
)

func TestStreamGenerate(t *testing.T) {
	mock := &mockProvider{
		name: "mock",
		events: []Event{
			{Type: EventStart},
			{Type: EventTextDelta, Delta: "one "},
			{Type: EventTextDelta, Delta: "two"},
			{Type: EventFinish, FinishReason: &FinishReason{Reason: "stop"}, Usage: &Usage{TotalTokens: 4}},
		},
	}
	client := NewClient(WithProvider("mock", mock))

	sr, err := StreamGenerate(context.Background(), GenerateOptions{
		Client: client,
		Prompt: "count",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var text string
	for ev := range sr.Events() {
		if ev.Type == EventTextDelta {
			text += ev.Delta
		}
	}
	if text != "one two" {
		t.Errorf("streamed %q", text)
	}

	resp := sr.Response()
	if resp == nil {
		t.Fatal("final response missing after stream end")
	}
	if resp.Text() != "one two" {
		t.Errorf("final response text %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 4 {
		t.Errorf("usage %d", resp.Usage.TotalTokens)
	}
}

func TestStreamGenerateAbandonedByCaller(t *testing.T) {
	// More deltas than the forward buffer holds, and a caller that never
	// reads: cancellation must still let the forwarder finish and publish
	// the accumulated response.
	events := make([]Event, 0, 130)
	events = append(events, Event{Type: EventStart})
	for i := 0; i < 128; i++ {
		events = append(events, Event{Type: EventTextDelta, Delta: "x"})
	}
	events = append(events, Event{Type: EventFinish, FinishReason: &FinishReason{Reason: "stop"}})

	mock := &mockProvider{name: "mock", events: events}
	client := NewClient(WithProvider("mock", mock))

	ctx, cancel := context.WithCancel(context.Background())
	sr, err := StreamGenerate(ctx, GenerateOptions{Client: client, Prompt: "count"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()

	deadline := time.After(2 * time.Second)
	for sr.Response() == nil {
		select {
		case <-deadline:
			t.Fatal("forwarder never finished after the stream was abandoned")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := sr.Response().Text(); len(got) != 128 {
		t.Errorf("accumulated %d bytes, want 128", len(got))
	}
}

func TestAccumulatorBuildsResponse(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Event{Type: EventTextDelta, Delta: "par"})
	acc.Add(Event{Type: EventTextDelta, Delta: "tial"})

	resp := acc.Response()
	if resp.Text() != "partial" {
		t.Errorf("got %q", resp.Text())
	}
	if resp.FinishReason.Reason != "stop" {
		t.Errorf("default finish reason %q", resp.FinishReason.Reason)
	}
}
