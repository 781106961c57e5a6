package rag

import (
	"regexp"
	"strings"
)

// ChunkStrategy selects how text is split.
type ChunkStrategy string

const (
	// StrategyFixed splits on fixed word windows with overlap.
	StrategyFixed ChunkStrategy = "fixed"
	// StrategySentence packs whole sentences up to the word budget.
	StrategySentence ChunkStrategy = "sentence"
)

// Chunker splits documents into retrieval-sized chunks. Sizes are in words,
// a rough stand-in for tokens.
type Chunker struct {
	Size     int // words per chunk, default 200
	Overlap  int // words carried over between chunks, default 20
	Strategy ChunkStrategy
}

// NewChunker creates a Chunker with the given strategy and defaults.
func NewChunker(strategy ChunkStrategy) *Chunker {
	return &Chunker{Size: 200, Overlap: 20, Strategy: strategy}
}

var sentenceEnd = regexp.MustCompile(`([.!?]+)\s+`)

// Chunk splits text according to the configured strategy. Empty or
// whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	size := c.Size
	if size <= 0 {
		size = 200
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	if c.Strategy == StrategySentence {
		return c.chunkSentences(text, size)
	}
	return chunkFixed(text, size, overlap)
}

func chunkFixed(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

func (c *Chunker) chunkSentences(text string, size int) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current []string
	words := 0
	for _, sentence := range sentences {
		n := len(strings.Fields(sentence))
		if words+n > size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			words = 0
		}
		current = append(current, sentence)
		words += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// splitSentences breaks text on sentence-ending punctuation, keeping the
// punctuation with its sentence.
func splitSentences(text string) []string {
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	var sentences []string
	for _, s := range strings.Split(marked, "\x00") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
