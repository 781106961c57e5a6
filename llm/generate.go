package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// GenerateOptions configures a high-level Generate call.
type GenerateOptions struct {
	Client        *Client
	Model         string
	Prompt        string    // simple text prompt, mutually exclusive with Messages
	Messages      []Message // full conversation, mutually exclusive with Prompt
	System        string
	Provider      string
	Tools         []Tool
	MaxToolRounds int // default 1 when tools are present
	ResponseFormat *ResponseFormat
	Temperature   *float64
	TopP          *float64
	MaxTokens     *int
	StopSequences []string
	Retry         *RetryPolicy // nil means DefaultRetryPolicy
}

// GenerateResult is the outcome of a Generate call.
type GenerateResult struct {
	Text         string       `json:"text"`
	ToolCalls    []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults  []ToolResult `json:"tool_results,omitempty"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`       // last step
	TotalUsage   Usage        `json:"total_usage"` // across tool rounds
	Response     Response     `json:"response"`
	Rounds       int          `json:"rounds"`
}

func (o GenerateOptions) buildMessages() ([]Message, error) {
	if o.Prompt != "" && len(o.Messages) > 0 {
		return nil, &ConfigError{BaseError{Message: "cannot set both Prompt and Messages"}}
	}
	messages := o.Messages
	if o.Prompt != "" {
		messages = []Message{UserMessage(o.Prompt)}
	}
	if o.System != "" {
		messages = append([]Message{SystemMessage(o.System)}, messages...)
	}
	return messages, nil
}

func (o GenerateOptions) request(messages []Message) Request {
	var defs []ToolDefinition
	for _, t := range o.Tools {
		defs = append(defs, t.Definition())
	}
	return Request{
		Model:          o.Model,
		Messages:       messages,
		Provider:       o.Provider,
		Tools:          o.Tools,
		ToolDefs:       defs,
		ResponseFormat: o.ResponseFormat,
		Temperature:    o.Temperature,
		TopP:           o.TopP,
		MaxTokens:      o.MaxTokens,
		StopSequences:  o.StopSequences,
	}
}

// Generate wraps Client.Complete with retries and an active tool loop.
// Tool calls returned by the model are executed concurrently and their
// results appended to the conversation until the model stops calling tools
// or the round budget runs out.
func Generate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	if opts.Client == nil {
		return nil, &ConfigError{BaseError{Message: "GenerateOptions.Client is required"}}
	}

	messages, err := opts.buildMessages()
	if err != nil {
		return nil, err
	}

	policy := DefaultRetryPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}

	maxRounds := opts.MaxToolRounds
	if maxRounds == 0 && len(opts.Tools) > 0 {
		maxRounds = 1
	}

	toolsByName := make(map[string]Tool, len(opts.Tools))
	hasActive := false
	for _, t := range opts.Tools {
		toolsByName[t.Name] = t
		if t.Execute != nil {
			hasActive = true
		}
	}

	conversation := append([]Message(nil), messages...)
	var totalUsage Usage
	rounds := 0

	for {
		req := opts.request(conversation)
		resp, err := Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
			return opts.Client.Complete(ctx, req)
		})
		if err != nil {
			return nil, err
		}
		rounds++
		totalUsage = totalUsage.Add(resp.Usage)

		calls := resp.ToolCalls()
		if len(calls) == 0 || resp.FinishReason.Reason != "tool_calls" || !hasActive || rounds > maxRounds {
			return &GenerateResult{
				Text:         resp.Text(),
				ToolCalls:    calls,
				FinishReason: resp.FinishReason,
				Usage:        resp.Usage,
				TotalUsage:   totalUsage,
				Response:     *resp,
				Rounds:       rounds,
			}, nil
		}

		results := runTools(toolsByName, calls)
		conversation = append(conversation, resp.Message)
		for _, tr := range results {
			conversation = append(conversation, Message{
				Role:  RoleTool,
				Parts: []Part{{Kind: PartToolResult, ToolResult: &tr}},
			})
		}
	}
}

// runTools executes tool calls concurrently, preserving call order in the
// result slice.
func runTools(tools map[string]Tool, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc ToolCall) {
			defer wg.Done()
			tool, ok := tools[tc.Name]
			if !ok || tool.Execute == nil {
				results[idx] = errorResult(tc.ID, fmt.Sprintf("unknown tool: %s", tc.Name))
				return
			}
			out, err := tool.Execute(tc.Arguments)
			if err != nil {
				results[idx] = errorResult(tc.ID, fmt.Sprintf("tool %s failed: %v", tc.Name, err))
				return
			}
			raw, _ := json.Marshal(out)
			results[idx] = ToolResult{ToolCallID: tc.ID, Content: raw}
		}(i, call)
	}
	wg.Wait()
	return results
}

func errorResult(callID, msg string) ToolResult {
	raw, _ := json.Marshal(msg)
	return ToolResult{ToolCallID: callID, Content: raw, IsError: true}
}
