package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/llmflow/llm"
)

const planJSON = `{
	"analysis": "needs a formal and a casual variant",
	"subtasks": [
		{"type": "formal", "description": "Write a formal product description"},
		{"type": "casual", "description": "Write a casual product description"}
	]
}`

func orchestrated(plan string) *scriptProvider {
	return &scriptProvider{respond: func(req llm.Request) (string, error) {
		sys := systemText(req)
		switch {
		case req.ResponseFormat != nil:
			return plan, nil
		case strings.Contains(sys, "worker"):
			return "WORK(" + lastUserText(req) + ")", nil
		default:
			return "SYNTHESIS", nil
		}
	}}
}

func TestOrchestratorProcess(t *testing.T) {
	p := orchestrated(planJSON)
	orch, err := NewOrchestrator(OrchestratorOptions{
		Client: clientWith(p),
		Model:  "orchestrator-model",
	})
	require.NoError(t, err)

	result, err := orch.Process(context.Background(), "Describe our new water bottle")
	require.NoError(t, err)

	assert.Equal(t, "needs a formal and a casual variant", result.Analysis)
	require.Len(t, result.Subtasks, 2)
	require.Len(t, result.WorkerOutputs, 2)

	// Worker outputs line up with subtask order.
	assert.Contains(t, result.WorkerOutputs[0], "formal")
	assert.Contains(t, result.WorkerOutputs[1], "casual")
	assert.Equal(t, "SYNTHESIS", result.Output)

	// Workers see the overall task alongside their subtask.
	for _, req := range p.seen() {
		if strings.Contains(systemText(req), "worker") {
			assert.Contains(t, lastUserText(req), "water bottle")
		}
	}
}

func TestOrchestratorEmptyPlanRunsTaskDirectly(t *testing.T) {
	p := orchestrated(`{"analysis": "trivial", "subtasks": []}`)
	orch, err := NewOrchestrator(OrchestratorOptions{Client: clientWith(p)})
	require.NoError(t, err)

	result, err := orch.Process(context.Background(), "Say hello")
	require.NoError(t, err)
	require.Len(t, result.Subtasks, 1)
	assert.Equal(t, "direct", result.Subtasks[0].Type)
	assert.Equal(t, "Say hello", result.Subtasks[0].Description)
}

func TestOrchestratorCapsSubtasks(t *testing.T) {
	p := orchestrated(`{"analysis": "big", "subtasks": [
		{"type": "a", "description": "1"},
		{"type": "b", "description": "2"},
		{"type": "c", "description": "3"}
	]}`)
	orch, err := NewOrchestrator(OrchestratorOptions{
		Client:      clientWith(p),
		MaxSubtasks: 2,
	})
	require.NoError(t, err)

	result, err := orch.Process(context.Background(), "task")
	require.NoError(t, err)
	assert.Len(t, result.Subtasks, 2)
	assert.Len(t, result.WorkerOutputs, 2)
}

func TestOrchestratorWorkerFailure(t *testing.T) {
	p := &scriptProvider{respond: func(req llm.Request) (string, error) {
		if req.ResponseFormat != nil {
			return planJSON, nil
		}
		if strings.Contains(systemText(req), "worker") {
			return "", errors.New("worker exploded")
		}
		return "SYNTHESIS", nil
	}}
	orch, err := NewOrchestrator(OrchestratorOptions{Client: clientWith(p), Retry: noRetry()})
	require.NoError(t, err)

	_, err = orch.Process(context.Background(), "task")
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "workers", stepErr.Step)
}
