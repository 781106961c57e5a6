// Package advisor intercepts LLM calls to inject cross-cutting behavior:
// request/response logging, conversation memory, retrieval augmentation, and
// input safeguards. Advisors compose into a single llm.Middleware and run in
// ascending Order.
package advisor

import (
	"context"
	"sort"

	"github.com/martinemde/llmflow/llm"
)

// Next invokes the rest of the advisor chain and, ultimately, the provider.
type Next func(ctx context.Context, req llm.Request) (*llm.Response, error)

// Advisor wraps one LLM call. Advise may rewrite the request before calling
// next, inspect or replace the response after, or short-circuit without
// calling next at all.
type Advisor interface {
	Name() string
	Order() int
	Advise(ctx context.Context, req llm.Request, next Next) (*llm.Response, error)
}

// Middleware composes advisors into one llm.Middleware. Advisors run in
// ascending Order; ties run in registration order.
func Middleware(advisors ...Advisor) llm.Middleware {
	sorted := append([]Advisor(nil), advisors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order() < sorted[j].Order()
	})

	return func(ctx context.Context, req llm.Request, next func(context.Context, llm.Request) (*llm.Response, error)) (*llm.Response, error) {
		handler := Next(next)
		for i := len(sorted) - 1; i >= 0; i-- {
			adv, inner := sorted[i], handler
			handler = func(ctx context.Context, r llm.Request) (*llm.Response, error) {
				return adv.Advise(ctx, r, inner)
			}
		}
		return handler(ctx, req)
	}
}

// lastUserIndex finds the last user message, or -1.
func lastUserIndex(messages []llm.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return i
		}
	}
	return -1
}
