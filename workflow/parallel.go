package workflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/martinemde/llmflow/llm"
)

// ParallelOptions configures a parallel fan-out: the same prompt applied to
// every input, with a bounded number of in-flight calls.
type ParallelOptions struct {
	Client      *llm.Client
	Model       string
	System      string
	Prompt      string // instruction prepended to each input
	Inputs      []string
	Concurrency int // max in-flight calls, default 4
	Temperature *float64
	Retry       *llm.RetryPolicy
}

// ParallelResult is the outcome for a single input. Results come back in
// input order regardless of completion order.
type ParallelResult struct {
	Index  int
	Input  string
	Output string
	Usage  llm.Usage
}

// Parallel runs the prompt against every input concurrently. The first
// error cancels outstanding calls and is returned; on success the results
// slice matches the input order.
func Parallel(ctx context.Context, opts ParallelOptions) ([]ParallelResult, error) {
	if opts.Client == nil {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "ParallelOptions.Client is required"}}
	}
	if len(opts.Inputs) == 0 {
		return nil, nil
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]ParallelResult, len(opts.Inputs))
	for i, input := range opts.Inputs {
		g.Go(func() error {
			prompt := input
			if opts.Prompt != "" {
				prompt = opts.Prompt + "\n\n" + input
			}
			gen, err := llm.Generate(ctx, llm.GenerateOptions{
				Client:      opts.Client,
				Model:       opts.Model,
				Prompt:      prompt,
				System:      opts.System,
				Temperature: opts.Temperature,
				Retry:       opts.Retry,
			})
			if err != nil {
				return err
			}
			results[i] = ParallelResult{Index: i, Input: input, Output: gen.Text, Usage: gen.TotalUsage}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Aggregate joins parallel outputs into one block, numbered in input order.
func Aggregate(results []ParallelResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, r.Output)
	}
	return sb.String()
}
