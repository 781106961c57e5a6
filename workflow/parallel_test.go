package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/llmflow/llm"
)

func TestParallelPreservesInputOrder(t *testing.T) {
	p := &scriptProvider{respond: func(req llm.Request) (string, error) {
		// Finish in scrambled order.
		text := lastUserText(req)
		if strings.Contains(text, "alpha") {
			time.Sleep(20 * time.Millisecond)
		}
		return "out:" + text, nil
	}}

	results, err := Parallel(context.Background(), ParallelOptions{
		Client: clientWith(p),
		Prompt: "Summarize.",
		Inputs: []string{"alpha", "beta", "gamma"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "alpha", results[0].Input)
	assert.Equal(t, "beta", results[1].Input)
	assert.Equal(t, "gamma", results[2].Input)
	assert.Contains(t, results[0].Output, "alpha")
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 2, results[2].Index)
}

func TestParallelHonorsConcurrencyLimit(t *testing.T) {
	p := &scriptProvider{respond: func(req llm.Request) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "ok", nil
	}}

	_, err := Parallel(context.Background(), ParallelOptions{
		Client:      clientWith(p),
		Inputs:      []string{"a", "b", "c", "d", "e", "f"},
		Concurrency: 2,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, p.peak, 2, "in-flight calls exceeded the limit")
}

func TestParallelFirstErrorWins(t *testing.T) {
	p := &scriptProvider{respond: func(req llm.Request) (string, error) {
		if strings.Contains(lastUserText(req), "bad") {
			return "", errors.New("worker failed")
		}
		return "ok", nil
	}}

	_, err := Parallel(context.Background(), ParallelOptions{
		Client: clientWith(p),
		Inputs: []string{"good", "bad", "good"},
		Retry:  noRetry(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker failed")
}

func TestParallelEmptyInputs(t *testing.T) {
	results, err := Parallel(context.Background(), ParallelOptions{
		Client: clientWith(&scriptProvider{}),
	})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestAggregate(t *testing.T) {
	joined := Aggregate([]ParallelResult{
		{Output: "one"},
		{Output: "two"},
	})
	assert.Equal(t, "[1] one\n\n[2] two", joined)
}
