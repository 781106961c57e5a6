// Package rag implements retrieval-augmented generation: document chunking,
// embedding, vector storage and similarity search, and a query engine that
// grounds model answers in retrieved passages.
package rag

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/martinemde/llmflow/llm"
)

// Document is one stored chunk with its embedding.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	Vector   []float32
}

// SearchResult is a document with its similarity score.
type SearchResult struct {
	Document
	Score float32
}

// Store is a vector store holding named collections of documents.
type Store interface {
	CreateCollection(ctx context.Context, name string, dimension int) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	Upsert(ctx context.Context, collection string, docs []Document) error
	Search(ctx context.Context, collection string, vector []float32, topK int, minScore float32) ([]SearchResult, error)
	DeleteCollection(ctx context.Context, name string) error
	DeleteByIDs(ctx context.Context, collection string, ids []string) error
}

// MemoryStore is an in-process Store using exact cosine similarity. It
// serves tests and small corpora; production setups use QdrantStore.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Document)}
}

func (s *MemoryStore) CreateCollection(ctx context.Context, name string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]Document)
	}
	return nil
}

func (s *MemoryStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		s.collections[collection] = coll
	}
	for _, doc := range docs {
		coll[doc.ID] = doc
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float32) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "collection " + collection + " does not exist"}}
	}

	var results []SearchResult
	for _, doc := range coll {
		score := cosine(vector, doc.Vector)
		if score >= minScore {
			results = append(results, SearchResult{Document: doc, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *MemoryStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(coll, id)
	}
	return nil
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
