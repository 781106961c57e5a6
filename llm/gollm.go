package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmProvider implements Provider on top of a gollm.LLM instance. gollm
// handles the HTTP transport and provider wire formats; this type translates
// between llmflow's message model and gollm's prompt API.
type GollmProvider struct {
	name  string
	llm   gollm.LLM
	model string
}

// GollmOption configures a GollmProvider.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extra       []gollm.ConfigOption
}

// WithAPIKey sets the API key. When empty, gollm reads the provider's
// conventional environment variable.
func WithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) { c.apiKey = key }
}

// WithModel sets the default model.
func WithModel(model string) GollmOption {
	return func(c *gollmConfig) { c.model = model }
}

// WithMaxTokens sets the default completion budget.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) { c.maxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) { c.temperature = t }
}

// WithGollmOptions passes extra configuration straight through to gollm.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) { c.extra = append(c.extra, opts...) }
}

// NewGollmProvider builds a GollmProvider for the named backend.
func NewGollmProvider(name string, opts ...GollmOption) (*GollmProvider, error) {
	cfg := &gollmConfig{maxTokens: 4096, temperature: 0.7}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		if info := LatestModel(name); info != nil {
			model = info.ID
		} else {
			model = "gpt-5.2-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(name),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries live in this package, not gollm
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extra...)

	inner, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gollm backend for %s: %w", name, err)
	}
	return &GollmProvider{name: name, llm: inner, model: model}, nil
}

// Name returns the provider identifier.
func (p *GollmProvider) Name() string { return p.name }

// Complete sends a blocking request.
func (p *GollmProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := p.translate(req)
	p.applyOverrides(req)

	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, p.classify(err)
	}
	return p.response(req, text), nil
}

// Stream sends a streaming request. Providers without native streaming get
// a single-delta fallback built from the blocking call.
func (p *GollmProvider) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	prompt := p.translate(req)
	p.applyOverrides(req)

	ch := make(chan Event, 64)

	if !p.llm.SupportsStreaming() {
		go func() {
			defer close(ch)
			ch <- Event{Type: EventStart}
			text, err := p.llm.Generate(ctx, prompt)
			if err != nil {
				ch <- Event{Type: EventError, Err: p.classify(err)}
				return
			}
			ch <- Event{Type: EventTextDelta, Delta: text}
			resp := p.response(req, text)
			ch <- Event{Type: EventFinish, FinishReason: &resp.FinishReason, Usage: &resp.Usage, Response: resp}
		}()
		return ch, nil
	}

	stream, err := p.llm.Stream(ctx, prompt)
	if err != nil {
		return nil, p.classify(err)
	}

	go func() {
		defer close(ch)
		defer stream.Close()

		ch <- Event{Type: EventStart}
		var full strings.Builder
		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- Event{Type: EventError, Err: p.classify(err)}
				return
			}
			if token == nil {
				continue
			}
			ch <- Event{Type: EventTextDelta, Delta: token.Text}
			full.WriteString(token.Text)
		}
		resp := p.response(req, full.String())
		ch <- Event{Type: EventFinish, FinishReason: &resp.FinishReason, Usage: &resp.Usage, Response: resp}
	}()

	return ch, nil
}

// translate flattens the unified message model into a gollm prompt. gollm
// takes one system prompt plus a single text body, so assistant turns and
// tool results are rendered inline with role markers.
func (p *GollmProvider) translate(req Request) *gollm.Prompt {
	var system strings.Builder
	var body []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system.WriteString(msg.Text())
			system.WriteString("\n")
		case RoleUser:
			body = append(body, msg.Text())
		case RoleAssistant:
			if text := msg.Text(); text != "" {
				body = append(body, "[Assistant]: "+text)
			}
		case RoleTool:
			for _, part := range msg.Parts {
				if part.Kind != PartToolResult || part.ToolResult == nil {
					continue
				}
				var content string
				_ = json.Unmarshal(part.ToolResult.Content, &content)
				if content == "" {
					content = string(part.ToolResult.Content)
				}
				prefix := "[Tool Result]"
				if part.ToolResult.IsError {
					prefix = "[Tool Error]"
				}
				body = append(body, prefix+": "+content)
			}
		}
	}

	text := strings.Join(body, "\n")
	if text == "" {
		text = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if s := strings.TrimSpace(system.String()); s != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(s, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if len(req.ToolDefs) > 0 {
		tools := make([]gollm.Tool, 0, len(req.ToolDefs))
		for _, t := range req.ToolDefs {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
	}

	return gollm.NewPrompt(text, promptOpts...)
}

func (p *GollmProvider) applyOverrides(req Request) {
	if req.Model != "" {
		p.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		p.llm.SetOption("temperature", *req.Temperature)
	}
	if req.TopP != nil {
		p.llm.SetOption("top_p", *req.TopP)
	}
	if req.MaxTokens != nil {
		p.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// response builds a unified Response from generated text, recovering tool
// calls that gollm returns embedded in the text body.
func (p *GollmProvider) response(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = p.model
	}

	calls := parseEmbeddedToolCalls(text)
	var parts []Part
	cleaned := stripToolCallJSON(text, calls)
	if cleaned != "" {
		parts = append(parts, TextPart(cleaned))
	}
	for _, tc := range calls {
		parts = append(parts, Part{Kind: PartToolCall, ToolCall: &tc})
	}
	if len(parts) == 0 {
		parts = []Part{TextPart(text)}
	}

	finish := FinishReason{Reason: "stop", Raw: "stop"}
	if len(calls) > 0 {
		finish = FinishReason{Reason: "tool_calls", Raw: "tool_calls"}
	}

	// gollm does not expose usage; approximate at ~4 chars per token.
	in := promptChars(req) / 4
	out := len(text) / 4

	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     p.name,
		Message:      Message{Role: RoleAssistant, Parts: parts},
		FinishReason: finish,
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

func promptChars(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		for _, part := range msg.Parts {
			if part.Kind == PartText {
				total += len(part.Text)
			}
		}
	}
	return total
}

// parseEmbeddedToolCalls detects tool call JSON that gollm leaves in the
// response body, in the form [{"name": ..., "arguments": {...}}].
func parseEmbeddedToolCalls(text string) []ToolCall {
	start := strings.Index(text, `[{"name"`)
	if start == -1 {
		return nil
	}

	var raw []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(text[start:]), &raw); err != nil {
		return nil
	}

	calls := make([]ToolCall, 0, len(raw))
	for _, rc := range raw {
		calls = append(calls, ToolCall{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: rc.Arguments,
		})
	}
	return calls
}

func stripToolCallJSON(text string, calls []ToolCall) string {
	if len(calls) == 0 {
		return text
	}
	if idx := strings.Index(text, `[{"name"`); idx != -1 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

// classify converts a gollm error into the typed hierarchy. gollm flattens
// HTTP failures into strings, so classification is by message content.
func (p *GollmProvider) classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	pe := ProviderError{BaseError: BaseError{Message: msg, Cause: err}, Provider: p.name}

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthenticationError{pe}
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		pe.StatusCode = 404
		return &NotFoundError{pe}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		pe.StatusCode = 429
		pe.Retryable = true
		return &RateLimitError{pe}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{pe}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		pe.StatusCode = 500
		pe.Retryable = true
		return &ServerError{pe}
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return &ContentFilterError{pe}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return &NetworkError{BaseError{Message: msg, Cause: err}}
	default:
		pe.Retryable = true
		return &pe
	}
}
