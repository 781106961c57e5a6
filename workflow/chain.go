package workflow

import (
	"context"
	"fmt"

	"github.com/martinemde/llmflow/llm"
)

// ChainStep is one stage of a prompt chain. The step's prompt is combined
// with the output of the previous step (or the chain input for the first
// step). A non-nil Validate acts as a gate: when it rejects the output the
// chain stops there.
type ChainStep struct {
	Name        string
	Prompt      string
	System      string
	Model       string // overrides ChainOptions.Model when set
	Temperature *float64
	Validate    func(output string) error
}

// ChainOptions configures a Chain run.
type ChainOptions struct {
	Client *llm.Client
	Model  string
	Input  string
	Steps  []ChainStep
	Retry  *llm.RetryPolicy
}

// StepResult records one completed chain step.
type StepResult struct {
	Name   string
	Input  string
	Output string
	Usage  llm.Usage
}

// ChainResult is the outcome of a full chain run.
type ChainResult struct {
	Output string
	Steps  []StepResult
	Usage  llm.Usage
}

// StepError marks a failure inside a named workflow step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Chain runs the steps sequentially, feeding each step's output into the
// next. It stops at the first generation error or failed validation gate;
// the returned error names the step.
func Chain(ctx context.Context, opts ChainOptions) (*ChainResult, error) {
	if opts.Client == nil {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "ChainOptions.Client is required"}}
	}
	if len(opts.Steps) == 0 {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "ChainOptions.Steps is empty"}}
	}

	result := &ChainResult{}
	current := opts.Input

	for i, step := range opts.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		model := step.Model
		if model == "" {
			model = opts.Model
		}

		prompt := step.Prompt
		if current != "" {
			prompt = step.Prompt + "\n\n" + current
		}

		gen, err := llm.Generate(ctx, llm.GenerateOptions{
			Client:      opts.Client,
			Model:       model,
			Prompt:      prompt,
			System:      step.System,
			Temperature: step.Temperature,
			Retry:       opts.Retry,
		})
		if err != nil {
			return nil, &StepError{Step: name, Err: err}
		}

		if step.Validate != nil {
			if err := step.Validate(gen.Text); err != nil {
				return nil, &StepError{Step: name, Err: fmt.Errorf("validation failed: %w", err)}
			}
		}

		result.Steps = append(result.Steps, StepResult{
			Name:   name,
			Input:  current,
			Output: gen.Text,
			Usage:  gen.TotalUsage,
		})
		result.Usage = result.Usage.Add(gen.TotalUsage)
		current = gen.Text
	}

	result.Output = current
	return result, nil
}
