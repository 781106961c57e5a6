package workflow

import (
	"context"
	"fmt"

	"github.com/martinemde/llmflow/llm"
	"github.com/martinemde/llmflow/structured"
)

// Evaluation is the evaluator's verdict on one attempt.
type Evaluation struct {
	Status   string `json:"status" jsonschema:"enum=PASS,enum=NEEDS_IMPROVEMENT"`
	Feedback string `json:"feedback"`
}

// Passed reports whether the evaluator accepted the attempt.
func (e Evaluation) Passed() bool { return e.Status == "PASS" }

// EvaluatorOptions configures an evaluator-optimizer loop.
type EvaluatorOptions struct {
	Client         *llm.Client
	GeneratorModel string
	EvaluatorModel string // defaults to GeneratorModel
	Criteria       string // what the evaluator judges against
	MaxRounds      int    // generation attempts, default 3
	Retry          *llm.RetryPolicy
}

// EvaluatorOptimizer generates an answer, has a second model judge it, and
// regenerates with the judge's feedback until it passes or the round budget
// runs out.
type EvaluatorOptimizer struct {
	client         *llm.Client
	generatorModel string
	evaluatorModel string
	criteria       string
	maxRounds      int
	retry          *llm.RetryPolicy
}

// Attempt records one generate-evaluate round.
type Attempt struct {
	Output     string
	Evaluation Evaluation
}

// OptimizeResult is the outcome of an EvaluatorOptimizer run.
type OptimizeResult struct {
	Output   string // final (accepted or last) attempt
	Passed   bool
	Rounds   int
	Attempts []Attempt
	Usage    llm.Usage
}

// NewEvaluatorOptimizer builds an EvaluatorOptimizer.
func NewEvaluatorOptimizer(opts EvaluatorOptions) (*EvaluatorOptimizer, error) {
	if opts.Client == nil {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "EvaluatorOptions.Client is required"}}
	}
	evaluatorModel := opts.EvaluatorModel
	if evaluatorModel == "" {
		evaluatorModel = opts.GeneratorModel
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 3
	}
	return &EvaluatorOptimizer{
		client:         opts.Client,
		generatorModel: opts.GeneratorModel,
		evaluatorModel: evaluatorModel,
		criteria:       opts.Criteria,
		maxRounds:      maxRounds,
		retry:          opts.Retry,
	}, nil
}

// Run executes the loop for one task.
func (eo *EvaluatorOptimizer) Run(ctx context.Context, task string) (*OptimizeResult, error) {
	result := &OptimizeResult{}

	prompt := task
	for round := 1; round <= eo.maxRounds; round++ {
		gen, err := llm.Generate(ctx, llm.GenerateOptions{
			Client: eo.client,
			Model:  eo.generatorModel,
			Prompt: prompt,
			Retry:  eo.retry,
		})
		if err != nil {
			return nil, &StepError{Step: fmt.Sprintf("generate round %d", round), Err: err}
		}
		result.Usage = result.Usage.Add(gen.TotalUsage)
		result.Rounds = round
		result.Output = gen.Text

		eval, err := eo.evaluate(ctx, task, gen.Text)
		if err != nil {
			return nil, &StepError{Step: fmt.Sprintf("evaluate round %d", round), Err: err}
		}
		result.Attempts = append(result.Attempts, Attempt{Output: gen.Text, Evaluation: eval})

		if eval.Passed() {
			result.Passed = true
			return result, nil
		}

		prompt = fmt.Sprintf(
			"%s\n\nYour previous attempt:\n%s\n\nReviewer feedback:\n%s\n\nProduce an improved version addressing the feedback.",
			task, gen.Text, eval.Feedback,
		)
	}

	return result, nil
}

func (eo *EvaluatorOptimizer) evaluate(ctx context.Context, task, output string) (Evaluation, error) {
	system := "You are a strict reviewer. Judge whether the answer fully satisfies the task. Answer PASS only when nothing needs to change; otherwise NEEDS_IMPROVEMENT with concrete feedback."
	if eo.criteria != "" {
		system += "\n\nCriteria:\n" + eo.criteria
	}
	return structured.GenerateAs[Evaluation](ctx, structured.Options{
		Client: eo.client,
		Model:  eo.evaluatorModel,
		System: system,
		Prompt: fmt.Sprintf("Task:\n%s\n\nAnswer:\n%s", task, output),
		Retry:  eo.retry,
	})
}
