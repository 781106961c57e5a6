// Package workflow implements composition patterns for multi-step LLM work:
// sequential chains with validation gates, input routing, bounded parallel
// fan-out, orchestrator-workers decomposition, and evaluator-optimizer loops.
//
// Each pattern is a thin coordination layer over llm.Generate and
// structured.GenerateAs; the patterns own control flow, not transport.
package workflow
