package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/llmflow/llm"
)

// Retriever supplies context passages for a query. rag.Retriever satisfies
// this through rag.AdvisorSource.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// Retrieval augments the last user message with retrieved passages before
// the call reaches the model. When nothing is retrieved the request passes
// through untouched.
type Retrieval struct {
	Source   Retriever
	Priority int
}

// NewRetrieval creates a Retrieval advisor over the source.
func NewRetrieval(source Retriever) *Retrieval {
	return &Retrieval{Source: source, Priority: 20}
}

func (a *Retrieval) Name() string { return "retrieval" }
func (a *Retrieval) Order() int   { return a.Priority }

func (a *Retrieval) Advise(ctx context.Context, req llm.Request, next Next) (*llm.Response, error) {
	idx := lastUserIndex(req.Messages)
	if idx < 0 {
		return next(ctx, req)
	}

	query := req.Messages[idx].Text()
	passages, err := a.Source.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval advisor: %w", err)
	}
	if len(passages) == 0 {
		return next(ctx, req)
	}

	var sb strings.Builder
	sb.WriteString("Answer using this context:\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "\n[%d] %s\n", i+1, p)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)

	messages := append([]llm.Message(nil), req.Messages...)
	messages[idx] = llm.UserMessage(sb.String())
	req.Messages = messages

	return next(ctx, req)
}
