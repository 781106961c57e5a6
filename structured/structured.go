// Package structured turns model responses into typed Go values.
//
// A call is parameterized by a result type. The JSON Schema for that type is
// derived by reflection (github.com/invopop/jsonschema), appended to the
// system prompt, and the response is decoded back into the type. A failed
// decode triggers one repair round where the model is shown its own invalid
// output and the decode error.
//
//	type Verdict struct {
//	    Score  int    `json:"score" jsonschema:"minimum=1,maximum=10"`
//	    Reason string `json:"reason"`
//	}
//
//	verdict, err := structured.GenerateAs[Verdict](ctx, structured.Options{
//	    Client: client,
//	    Model:  "gpt-5.2-mini",
//	    Prompt: "Rate this haiku: ...",
//	})
package structured

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/martinemde/llmflow/llm"
	"github.com/martinemde/llmflow/parser"
)

// Options configures a structured generation call.
type Options struct {
	Client      *llm.Client
	Model       string
	Prompt      string
	Messages    []llm.Message
	System      string
	Provider    string
	Temperature *float64
	MaxTokens   *int
	Retry       *llm.RetryPolicy

	// NoRepair disables the repair round on decode failure.
	NoRepair bool
}

// SchemaFor derives the JSON Schema for T as a plain map, with definitions
// inlined so the whole schema fits in a prompt.
func SchemaFor[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero T
	schema := reflector.Reflect(&zero)

	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// GenerateAs generates a response conforming to T's schema and decodes it.
func GenerateAs[T any](ctx context.Context, opts Options) (T, error) {
	var zero T
	if opts.Client == nil {
		return zero, &llm.ConfigError{BaseError: llm.BaseError{Message: "Options.Client is required"}}
	}

	schema := SchemaFor[T]()
	system := withSchemaInstruction(opts.System, schema)

	result, err := llm.Generate(ctx, llm.GenerateOptions{
		Client:      opts.Client,
		Model:       opts.Model,
		Prompt:      opts.Prompt,
		Messages:    opts.Messages,
		System:      system,
		Provider:    opts.Provider,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Retry:       opts.Retry,
		ResponseFormat: &llm.ResponseFormat{
			Type:   "json_schema",
			Schema: schema,
		},
	})
	if err != nil {
		return zero, err
	}

	value, decodeErr := decode[T](result.Text)
	if decodeErr == nil {
		return value, nil
	}
	if opts.NoRepair {
		return zero, &llm.NoObjectError{BaseError: llm.BaseError{
			Message: "response did not match the requested schema",
			Cause:   decodeErr,
		}}
	}

	// Repair round: show the model its invalid output and the error.
	repairPrompt := fmt.Sprintf(
		"Your previous reply could not be parsed.\n\nReply:\n%s\n\nError: %v\n\nRespond again with ONLY a valid JSON object matching the schema.",
		result.Text, decodeErr,
	)
	repaired, err := llm.Generate(ctx, llm.GenerateOptions{
		Client:      opts.Client,
		Model:       opts.Model,
		System:      system,
		Messages:    []llm.Message{llm.UserMessage(repairPrompt)},
		Provider:    opts.Provider,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Retry:       opts.Retry,
	})
	if err != nil {
		return zero, err
	}

	value, decodeErr = decode[T](repaired.Text)
	if decodeErr != nil {
		return zero, &llm.NoObjectError{BaseError: llm.BaseError{
			Message: "response did not match the requested schema after repair",
			Cause:   decodeErr,
		}}
	}
	return value, nil
}

func decode[T any](text string) (T, error) {
	var value T
	err := parser.Unmarshal(text, &value)
	return value, err
}

func withSchemaInstruction(system string, schema map[string]any) string {
	raw, _ := json.MarshalIndent(schema, "", "  ")
	instruction := fmt.Sprintf(
		"You must respond with a single valid JSON object matching this schema:\n```json\n%s\n```\nRespond ONLY with the JSON object, no other text.",
		raw,
	)
	if system == "" {
		return instruction
	}
	return system + "\n\n" + instruction
}
