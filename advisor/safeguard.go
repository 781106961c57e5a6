package advisor

import (
	"context"
	"strings"

	"github.com/martinemde/llmflow/llm"
)

// Safeguard blocks requests whose user content matches a blocked term. The
// model is never called for a blocked request; a canned refusal comes back
// with finish reason "content_filter".
type Safeguard struct {
	Blocked  []string
	Refusal  string // response text for blocked input
	Priority int
}

// NewSafeguard creates a Safeguard for the blocked terms.
func NewSafeguard(blocked ...string) *Safeguard {
	return &Safeguard{
		Blocked:  blocked,
		Refusal:  "I can't help with that request.",
		Priority: -10, // runs before everything else
	}
}

func (a *Safeguard) Name() string { return "safeguard" }
func (a *Safeguard) Order() int   { return a.Priority }

func (a *Safeguard) Advise(ctx context.Context, req llm.Request, next Next) (*llm.Response, error) {
	for _, msg := range req.Messages {
		if msg.Role != llm.RoleUser {
			continue
		}
		text := strings.ToLower(msg.Text())
		for _, term := range a.Blocked {
			if term != "" && strings.Contains(text, strings.ToLower(term)) {
				return &llm.Response{
					Provider:     req.Provider,
					Model:        req.Model,
					Message:      llm.AssistantMessage(a.Refusal),
					FinishReason: llm.FinishReason{Reason: "content_filter"},
				}, nil
			}
		}
	}
	return next(ctx, req)
}
