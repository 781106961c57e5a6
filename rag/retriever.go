package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/llmflow/llm"
	"github.com/martinemde/llmflow/structured"
)

// Reranker reorders search results by relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []SearchResult) ([]SearchResult, error)
}

// RetrieverOptions configures a Retriever.
type RetrieverOptions struct {
	Store      Store
	Embedder   Embedder
	Collection string
	TopK       int     // results returned, default 4
	MinScore   float32 // similarity floor, default 0
	Reranker   Reranker
}

// Retriever finds the passages most relevant to a query: embed, search a
// widened candidate set, drop near-duplicates, optionally rerank, cut to
// TopK.
type Retriever struct {
	store      Store
	embedder   Embedder
	collection string
	topK       int
	minScore   float32
	reranker   Reranker
}

// near-duplicate threshold on word-set Jaccard similarity
const dedupeThreshold = 0.7

// NewRetriever builds a Retriever.
func NewRetriever(opts RetrieverOptions) (*Retriever, error) {
	if opts.Store == nil || opts.Embedder == nil {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "RetrieverOptions needs a Store and an Embedder"}}
	}
	if opts.Collection == "" {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "RetrieverOptions.Collection is required"}}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{
		store:      opts.Store,
		embedder:   opts.Embedder,
		collection: opts.Collection,
		topK:       topK,
		minScore:   opts.MinScore,
		reranker:   opts.Reranker,
	}, nil
}

// Retrieve returns up to TopK relevant results, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]SearchResult, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// Over-fetch so dedupe and rerank have candidates to discard.
	candidates, err := r.store.Search(ctx, r.collection, vector, r.topK*3, r.minScore)
	if err != nil {
		return nil, fmt.Errorf("searching collection: %w", err)
	}

	results := dedupe(candidates)

	if r.reranker != nil && len(results) > 1 {
		results, err = r.reranker.Rerank(ctx, query, results)
		if err != nil {
			return nil, fmt.Errorf("reranking: %w", err)
		}
	}

	if len(results) > r.topK {
		results = results[:r.topK]
	}
	return results, nil
}

// dedupe drops results whose content nearly duplicates an earlier (higher
// scored) result.
func dedupe(results []SearchResult) []SearchResult {
	var kept []SearchResult
	for _, candidate := range results {
		duplicate := false
		for _, existing := range kept {
			if jaccard(candidate.Content, existing.Content) >= dedupeThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// jaccard computes word-set similarity between two texts.
func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}

// AdvisorSource adapts the Retriever to the advisor package's Retriever
// interface, returning plain passage texts.
type AdvisorSource struct {
	Retriever *Retriever
}

// Retrieve returns the contents of the retrieved results.
func (s *AdvisorSource) Retrieve(ctx context.Context, query string) ([]string, error) {
	results, err := s.Retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Content
	}
	return passages, nil
}

// LLMReranker reorders results by asking a model to rank them.
type LLMReranker struct {
	Client *llm.Client
	Model  string
}

type ranking struct {
	Order []int `json:"order"` // 1-based document numbers, most relevant first
}

// Rerank asks the model for a relevance ordering; documents the model
// leaves out keep their similarity order at the tail.
func (r *LLMReranker) Rerank(ctx context.Context, query string, results []SearchResult) ([]SearchResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nDocuments:\n", query)
	for i, res := range results {
		fmt.Fprintf(&sb, "\n[%d] %s\n", i+1, res.Content)
	}
	sb.WriteString("\nList the document numbers ordered from most to least relevant to the query.")

	ranked, err := structured.GenerateAs[ranking](ctx, structured.Options{
		Client: r.Client,
		Model:  r.Model,
		Prompt: sb.String(),
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	reordered := make([]SearchResult, 0, len(results))
	for _, n := range ranked.Order {
		idx := n - 1
		if idx < 0 || idx >= len(results) || seen[idx] {
			continue
		}
		seen[idx] = true
		reordered = append(reordered, results[idx])
	}
	for i, res := range results {
		if !seen[i] {
			reordered = append(reordered, res)
		}
	}
	return reordered, nil
}
