package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/llmflow/llm"
)

// evalScript alternates generator and evaluator replies.
func evalScript(verdicts []string) *scriptProvider {
	var mu sync.Mutex
	attempt := 0
	return &scriptProvider{respond: func(req llm.Request) (string, error) {
		if req.ResponseFormat != nil {
			mu.Lock()
			v := verdicts[attempt]
			attempt++
			mu.Unlock()
			return v, nil
		}
		return "draft " + lastUserText(req)[:5], nil
	}}
}

func TestEvaluatorOptimizerPassesFirstRound(t *testing.T) {
	p := evalScript([]string{`{"status": "PASS", "feedback": ""}`})
	eo, err := NewEvaluatorOptimizer(EvaluatorOptions{Client: clientWith(p)})
	require.NoError(t, err)

	result, err := eo.Run(context.Background(), "write a haiku")
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.Rounds)
	assert.Len(t, result.Attempts, 1)
}

func TestEvaluatorOptimizerImprovesWithFeedback(t *testing.T) {
	p := evalScript([]string{
		`{"status": "NEEDS_IMPROVEMENT", "feedback": "too few syllables"}`,
		`{"status": "PASS", "feedback": ""}`,
	})
	eo, err := NewEvaluatorOptimizer(EvaluatorOptions{Client: clientWith(p)})
	require.NoError(t, err)

	result, err := eo.Run(context.Background(), "write a haiku")
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.Rounds)
	require.Len(t, result.Attempts, 2)
	assert.False(t, result.Attempts[0].Evaluation.Passed())

	// The second generation prompt carries the reviewer feedback.
	var sawFeedback bool
	for _, req := range p.seen() {
		if req.ResponseFormat == nil && strings.Contains(lastUserText(req), "too few syllables") {
			sawFeedback = true
		}
	}
	assert.True(t, sawFeedback, "feedback was not fed back to the generator")
}

func TestEvaluatorOptimizerExhaustsRounds(t *testing.T) {
	p := evalScript([]string{
		`{"status": "NEEDS_IMPROVEMENT", "feedback": "no"}`,
		`{"status": "NEEDS_IMPROVEMENT", "feedback": "still no"}`,
	})
	eo, err := NewEvaluatorOptimizer(EvaluatorOptions{
		Client:    clientWith(p),
		MaxRounds: 2,
	})
	require.NoError(t, err)

	result, err := eo.Run(context.Background(), "write a haiku")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 2, result.Rounds)
	assert.NotEmpty(t, result.Output)
}

func TestEvaluatorCriteriaInSystemPrompt(t *testing.T) {
	p := evalScript([]string{`{"status": "PASS", "feedback": ""}`})
	eo, err := NewEvaluatorOptimizer(EvaluatorOptions{
		Client:   clientWith(p),
		Criteria: "exactly 17 syllables",
	})
	require.NoError(t, err)

	_, err = eo.Run(context.Background(), "write a haiku")
	require.NoError(t, err)

	var sawCriteria bool
	for _, req := range p.seen() {
		if req.ResponseFormat != nil && strings.Contains(systemText(req), "17 syllables") {
			sawCriteria = true
		}
	}
	assert.True(t, sawCriteria)
}
