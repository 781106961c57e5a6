package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/llmflow/llm"
	"github.com/martinemde/llmflow/structured"
)

// Subtask is one unit of work produced by task decomposition.
type Subtask struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// taskPlan is the structured decomposition answer.
type taskPlan struct {
	Analysis string    `json:"analysis"`
	Subtasks []Subtask `json:"subtasks"`
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Client      *llm.Client
	Model       string // orchestrator (decompose + synthesize) model
	WorkerModel string // defaults to Model
	Concurrency int    // worker fan-out limit, default 4
	MaxSubtasks int    // cap on decomposition size, default 5
	Retry       *llm.RetryPolicy
}

// Orchestrator decomposes a task into subtasks, fans them out to worker
// calls in parallel, then synthesizes one answer from the worker outputs.
type Orchestrator struct {
	client      *llm.Client
	model       string
	workerModel string
	concurrency int
	maxSubtasks int
	retry       *llm.RetryPolicy
}

// ProcessResult is the outcome of Orchestrator.Process.
type ProcessResult struct {
	Analysis      string
	Subtasks      []Subtask
	WorkerOutputs []string // same order as Subtasks
	Output        string
	Usage         llm.Usage
}

// NewOrchestrator builds an Orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "OrchestratorOptions.Client is required"}}
	}
	workerModel := opts.WorkerModel
	if workerModel == "" {
		workerModel = opts.Model
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	maxSubtasks := opts.MaxSubtasks
	if maxSubtasks <= 0 {
		maxSubtasks = 5
	}
	return &Orchestrator{
		client:      opts.Client,
		model:       opts.Model,
		workerModel: workerModel,
		concurrency: concurrency,
		maxSubtasks: maxSubtasks,
		retry:       opts.Retry,
	}, nil
}

// Process runs the full orchestrator-workers pattern on one task.
func (o *Orchestrator) Process(ctx context.Context, task string) (*ProcessResult, error) {
	plan, err := o.decompose(ctx, task)
	if err != nil {
		return nil, &StepError{Step: "decompose", Err: err}
	}

	subtasks := plan.Subtasks
	if len(subtasks) == 0 {
		// A plan with no subtasks degenerates to doing the task directly.
		subtasks = []Subtask{{Type: "direct", Description: task}}
	}
	if len(subtasks) > o.maxSubtasks {
		subtasks = subtasks[:o.maxSubtasks]
	}

	inputs := make([]string, len(subtasks))
	for i, st := range subtasks {
		inputs[i] = fmt.Sprintf("Subtask (%s): %s", st.Type, st.Description)
	}

	workerResults, err := Parallel(ctx, ParallelOptions{
		Client:      o.client,
		Model:       o.workerModel,
		System:      "You are a worker completing one subtask of a larger job. Do only your subtask, thoroughly.",
		Prompt:      "Overall task: " + task,
		Inputs:      inputs,
		Concurrency: o.concurrency,
		Retry:       o.retry,
	})
	if err != nil {
		return nil, &StepError{Step: "workers", Err: err}
	}

	outputs := make([]string, len(workerResults))
	var usage llm.Usage
	for i, wr := range workerResults {
		outputs[i] = wr.Output
		usage = usage.Add(wr.Usage)
	}

	final, err := o.synthesize(ctx, task, plan.Analysis, subtasks, outputs)
	if err != nil {
		return nil, &StepError{Step: "synthesize", Err: err}
	}
	usage = usage.Add(final.TotalUsage)

	return &ProcessResult{
		Analysis:      plan.Analysis,
		Subtasks:      subtasks,
		WorkerOutputs: outputs,
		Output:        final.Text,
		Usage:         usage,
	}, nil
}

func (o *Orchestrator) decompose(ctx context.Context, task string) (taskPlan, error) {
	return structured.GenerateAs[taskPlan](ctx, structured.Options{
		Client: o.client,
		Model:  o.model,
		System: fmt.Sprintf(
			"You are an orchestrator. Analyze the task and break it into at most %d independent subtasks that can run in parallel. Each subtask has a short type and a self-contained description.",
			o.maxSubtasks,
		),
		Prompt: task,
		Retry:  o.retry,
	})
}

func (o *Orchestrator) synthesize(ctx context.Context, task, analysis string, subtasks []Subtask, outputs []string) (*llm.GenerateResult, error) {
	var sb strings.Builder
	sb.WriteString("Original task:\n")
	sb.WriteString(task)
	if analysis != "" {
		sb.WriteString("\n\nAnalysis:\n")
		sb.WriteString(analysis)
	}
	sb.WriteString("\n\nWorker results:\n")
	for i, out := range outputs {
		fmt.Fprintf(&sb, "\n[%d: %s]\n%s\n", i+1, subtasks[i].Type, out)
	}
	sb.WriteString("\nCombine the worker results into one coherent answer to the original task.")

	return llm.Generate(ctx, llm.GenerateOptions{
		Client: o.client,
		Model:  o.model,
		Prompt: sb.String(),
		Retry:  o.retry,
	})
}
