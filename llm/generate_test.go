package llm

import (
	"context"
	"encoding/json"
	"testing"
)

// scriptedProvider returns canned responses in sequence.
type scriptedProvider struct {
	name      string
	responses []*Response
	requests  []Request
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	s.requests = append(s.requests, req)
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func (s *scriptedProvider) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	ch := make(chan Event)
	close(ch)
	return ch, nil
}

func TestGenerateSimple(t *testing.T) {
	client := NewClient(WithProvider("mock", newMockProvider("mock", "hi there")))
	result, err := Generate(context.Background(), GenerateOptions{
		Client: client,
		Model:  "test-model",
		Prompt: "say hi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "hi there" {
		t.Errorf("got %q", result.Text)
	}
	if result.Rounds != 1 {
		t.Errorf("expected 1 round, got %d", result.Rounds)
	}
}

func TestGeneratePromptAndMessagesExclusive(t *testing.T) {
	client := NewClient(WithProvider("mock", newMockProvider("mock", "x")))
	_, err := Generate(context.Background(), GenerateOptions{
		Client:   client,
		Prompt:   "a",
		Messages: []Message{UserMessage("b")},
	})
	if err == nil {
		t.Fatal("expected error for Prompt+Messages")
	}
}

func TestGenerateSystemPrepended(t *testing.T) {
	script := &scriptedProvider{
		name:      "mock",
		responses: []*Response{{Message: AssistantMessage("ok"), FinishReason: FinishReason{Reason: "stop"}}},
	}
	client := NewClient(WithProvider("mock", script))
	_, err := Generate(context.Background(), GenerateOptions{
		Client: client,
		Prompt: "question",
		System: "be terse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs := script.requests[0].Messages
	if msgs[0].Role != RoleSystem || msgs[0].Text() != "be terse" {
		t.Errorf("system message not prepended: %+v", msgs)
	}
}

func TestGenerateToolLoop(t *testing.T) {
	args, _ := json.Marshal(map[string]string{"city": "Lisbon"})
	first := &Response{
		Message: Message{Role: RoleAssistant, Parts: []Part{
			ToolCallPart("call_1", "get_weather", args),
		}},
		FinishReason: FinishReason{Reason: "tool_calls"},
		Usage:        Usage{TotalTokens: 10},
	}
	second := &Response{
		Message:      AssistantMessage("It is sunny in Lisbon."),
		FinishReason: FinishReason{Reason: "stop"},
		Usage:        Usage{TotalTokens: 12},
	}
	script := &scriptedProvider{name: "mock", responses: []*Response{first, second}}
	client := NewClient(WithProvider("mock", script))

	executed := false
	result, err := Generate(context.Background(), GenerateOptions{
		Client: client,
		Model:  "test-model",
		Prompt: "weather in Lisbon?",
		Tools: []Tool{{
			Name:        "get_weather",
			Description: "look up weather",
			Parameters:  map[string]any{"type": "object"},
			Execute: func(args json.RawMessage) (any, error) {
				executed = true
				return "sunny", nil
			},
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !executed {
		t.Error("tool was not executed")
	}
	if result.Text != "It is sunny in Lisbon." {
		t.Errorf("got %q", result.Text)
	}
	if result.Rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", result.Rounds)
	}
	if result.TotalUsage.TotalTokens != 22 {
		t.Errorf("usage not summed: %d", result.TotalUsage.TotalTokens)
	}

	// Second request must carry the assistant tool call and the tool result.
	msgs := script.requests[1].Messages
	foundResult := false
	for _, m := range msgs {
		if m.Role == RoleTool {
			foundResult = true
		}
	}
	if !foundResult {
		t.Error("tool result missing from follow-up conversation")
	}
}

func TestGenerateUnknownToolReportsError(t *testing.T) {
	args, _ := json.Marshal(map[string]string{})
	results := runTools(map[string]Tool{}, []ToolCall{{ID: "c1", Name: "nope", Arguments: args}})
	if len(results) != 1 || !results[0].IsError {
		t.Fatalf("expected error result, got %+v", results)
	}
}

func TestGenerateRequiresClient(t *testing.T) {
	_, err := Generate(context.Background(), GenerateOptions{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error without client")
	}
}
