package advisor

import (
	"context"

	"github.com/martinemde/llmflow/llm"
	"github.com/martinemde/llmflow/memory"
)

// ChatMemory injects prior conversation turns into the request and records
// the new exchange after the call succeeds. Sessions are identified by the
// request's "session" metadata key, falling back to DefaultSession.
type ChatMemory struct {
	Store          *memory.Store
	DefaultSession string
	Priority       int
}

// NewChatMemory creates a ChatMemory advisor over the store.
func NewChatMemory(store *memory.Store) *ChatMemory {
	return &ChatMemory{Store: store, DefaultSession: "default", Priority: 10}
}

func (a *ChatMemory) Name() string { return "chat-memory" }
func (a *ChatMemory) Order() int   { return a.Priority }

func (a *ChatMemory) Advise(ctx context.Context, req llm.Request, next Next) (*llm.Response, error) {
	session := req.Metadata["session"]
	if session == "" {
		session = a.DefaultSession
	}

	userIdx := lastUserIndex(req.Messages)

	if history := a.Store.FormatForPrompt(session); history != "" {
		preamble := llm.SystemMessage("Previous conversation:\n" + history)
		req.Messages = append([]llm.Message{preamble}, req.Messages...)
		if userIdx >= 0 {
			userIdx++
		}
	}

	resp, err := next(ctx, req)
	if err != nil {
		return nil, err
	}

	if userIdx >= 0 {
		a.Store.Append(session, "user", req.Messages[userIdx].Text())
	}
	a.Store.Append(session, "assistant", resp.Text())
	return resp, nil
}
