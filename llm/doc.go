// Package llm provides a provider-agnostic chat client on top of the gollm
// library (github.com/teilomillet/gollm). It is the foundation the rest of
// llmflow builds on: the workflow patterns, the advisor chain, and the RAG
// engine all speak to models through this package.
//
// # Architecture
//
//   - Provider: the interface every backend implements (Complete, Stream)
//   - Client: provider registry, routing, and middleware
//   - Generate / StreamGenerate: high-level calls with retries and tool loops
//   - Typed errors and a retry policy with exponential backoff
//
// # Quick Start
//
//	client := llm.NewClient(llm.WithProvider("openai", adapter))
//
//	resp, err := client.Complete(ctx, llm.Request{
//	    Model:    "gpt-5.2-mini",
//	    Messages: []llm.Message{llm.UserMessage("Say hello")},
//	})
//	fmt.Println(resp.Text())
//
// Or through the high-level API, which adds retries and tool execution:
//
//	result, err := llm.Generate(ctx, llm.GenerateOptions{
//	    Client: client,
//	    Model:  "gpt-5.2-mini",
//	    Prompt: "Say hello",
//	})
//
// # Streaming
//
// Stream returns a channel of Event values. The Accumulator type collects
// deltas back into a full Response for callers that want both live tokens
// and the final message:
//
//	events, _ := client.Stream(ctx, req)
//	acc := llm.NewAccumulator()
//	for ev := range events {
//	    if ev.Type == llm.EventTextDelta {
//	        fmt.Print(ev.Delta)
//	    }
//	    acc.Add(ev)
//	}
//	final := acc.Response()
package llm
