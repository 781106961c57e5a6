package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/martinemde/llmflow/llm"
)

// EngineOptions configures a RAG Engine.
type EngineOptions struct {
	Client     *llm.Client
	Model      string
	Store      Store
	Embedder   Embedder
	Collection string
	Chunker    *Chunker // default sentence chunker
	TopK       int
	MinScore   float32
	Reranker   Reranker
	Retry      *llm.RetryPolicy
}

// Engine ties ingestion and retrieval together: Ingest chunks and embeds
// documents into the store, Query answers questions grounded in what was
// ingested.
type Engine struct {
	client     *llm.Client
	model      string
	store      Store
	embedder   Embedder
	collection string
	chunker    *Chunker
	retriever  *Retriever
	retry      *llm.RetryPolicy
}

// Answer is a grounded response with the passages that informed it.
type Answer struct {
	Text    string
	Sources []SearchResult
	Usage   llm.Usage
}

// NewEngine builds an Engine and ensures its collection exists.
func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	if opts.Client == nil {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "EngineOptions.Client is required"}}
	}
	chunker := opts.Chunker
	if chunker == nil {
		chunker = NewChunker(StrategySentence)
	}

	retriever, err := NewRetriever(RetrieverOptions{
		Store:      opts.Store,
		Embedder:   opts.Embedder,
		Collection: opts.Collection,
		TopK:       opts.TopK,
		MinScore:   opts.MinScore,
		Reranker:   opts.Reranker,
	})
	if err != nil {
		return nil, err
	}

	if err := opts.Store.CreateCollection(ctx, opts.Collection, opts.Embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("ensuring collection %q: %w", opts.Collection, err)
	}

	return &Engine{
		client:     opts.Client,
		model:      opts.Model,
		store:      opts.Store,
		embedder:   opts.Embedder,
		collection: opts.Collection,
		chunker:    chunker,
		retriever:  retriever,
		retry:      opts.Retry,
	}, nil
}

// Retriever exposes the engine's retriever, for use with advisors.
func (e *Engine) Retriever() *Retriever {
	return e.retriever
}

// Ingest chunks, embeds and stores one document. Metadata is attached to
// every chunk; the returned count is the number of chunks stored.
func (e *Engine) Ingest(ctx context.Context, sourceID, text string, metadata map[string]string) (int, error) {
	chunks := e.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := e.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	docs := make([]Document, len(chunks))
	for i, chunk := range chunks {
		meta := map[string]string{"source": sourceID}
		for k, v := range metadata {
			meta[k] = v
		}
		docs[i] = Document{
			ID:       uuid.NewString(),
			Content:  chunk,
			Metadata: meta,
			Vector:   vectors[i],
		}
	}

	if err := e.store.Upsert(ctx, e.collection, docs); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}
	return len(docs), nil
}

// Query retrieves relevant passages and generates a grounded answer. When
// nothing relevant is found the model is told it has no context and to say
// so rather than guess.
func (e *Engine) Query(ctx context.Context, question string) (*Answer, error) {
	sources, prompt, err := e.prepare(ctx, question)
	if err != nil {
		return nil, err
	}

	gen, err := llm.Generate(ctx, llm.GenerateOptions{
		Client: e.client,
		Model:  e.model,
		Prompt: prompt,
		Retry:  e.retry,
	})
	if err != nil {
		return nil, err
	}

	return &Answer{Text: gen.Text, Sources: sources, Usage: gen.TotalUsage}, nil
}

// QueryStream is Query with a streaming response. Sources are returned
// immediately; the text arrives on the stream.
func (e *Engine) QueryStream(ctx context.Context, question string) (*llm.StreamResult, []SearchResult, error) {
	sources, prompt, err := e.prepare(ctx, question)
	if err != nil {
		return nil, nil, err
	}

	sr, err := llm.StreamGenerate(ctx, llm.GenerateOptions{
		Client: e.client,
		Model:  e.model,
		Prompt: prompt,
		Retry:  e.retry,
	})
	if err != nil {
		return nil, nil, err
	}
	return sr, sources, nil
}

func (e *Engine) prepare(ctx context.Context, question string) ([]SearchResult, string, error) {
	sources, err := e.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, "", err
	}
	return sources, buildPrompt(question, sources), nil
}

func buildPrompt(question string, sources []SearchResult) string {
	var sb strings.Builder
	if len(sources) == 0 {
		sb.WriteString("No relevant context documents were found for this question. ")
		sb.WriteString("Say that you don't have the information rather than guessing.\n\n")
	} else {
		sb.WriteString("## Context Documents\n")
		for i, src := range sources {
			fmt.Fprintf(&sb, "\n[Doc %d] %s\n", i+1, src.Content)
		}
		sb.WriteString("\nAnswer the question using only the context documents above.\n\n")
	}
	sb.WriteString("## Question\n")
	sb.WriteString(question)
	sb.WriteString("\n\n## Answer\n")
	return sb.String()
}
