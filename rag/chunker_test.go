package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int, prefix string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix
	}
	return strings.Join(parts, " ")
}

func TestChunkFixedWindows(t *testing.T) {
	c := &Chunker{Size: 10, Overlap: 2, Strategy: StrategyFixed}
	chunks := c.Chunk(words(25, "w"))

	require.Len(t, chunks, 3) // windows at 0, 8, 16
	assert.Len(t, strings.Fields(chunks[0]), 10)
	assert.Len(t, strings.Fields(chunks[1]), 10)
	assert.Len(t, strings.Fields(chunks[2]), 9)
}

func TestChunkFixedSmallInput(t *testing.T) {
	c := &Chunker{Size: 100, Strategy: StrategyFixed}
	chunks := c.Chunk("just a few words")
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a few words", chunks[0])
}

func TestChunkSentencesPacksWholeSentences(t *testing.T) {
	c := &Chunker{Size: 8, Strategy: StrategySentence}
	text := "First sentence here. Second one is a bit longer now. Third! Fourth one?"
	chunks := c.Chunk(text)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		// No chunk starts or ends mid-sentence.
		assert.Regexp(t, `[.!?]$`, chunk)
	}
	assert.Contains(t, chunks[0], "First sentence here.")
}

func TestChunkEmptyInput(t *testing.T) {
	c := NewChunker(StrategyFixed)
	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("   \n\t  "))
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Four")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "Four"}, got)
}
