package advisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/martinemde/llmflow/llm"
)

// Logging logs every advised call: model, provider and message count going
// in; latency, finish reason and usage coming out.
type Logging struct {
	Logger   *slog.Logger
	Priority int // advisor order, default 0 (outermost)
}

// NewLogging creates a Logging advisor. A nil logger uses slog.Default.
func NewLogging(logger *slog.Logger) *Logging {
	return &Logging{Logger: logger}
}

func (a *Logging) Name() string { return "logging" }
func (a *Logging) Order() int   { return a.Priority }

func (a *Logging) Advise(ctx context.Context, req llm.Request, next Next) (*llm.Response, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.DebugContext(ctx, "llm call",
		"model", req.Model,
		"provider", req.Provider,
		"messages", len(req.Messages),
	)

	start := time.Now()
	resp, err := next(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		logger.ErrorContext(ctx, "llm call failed",
			"model", req.Model,
			"provider", req.Provider,
			"elapsed", elapsed,
			"error", err,
		)
		return nil, err
	}

	logger.InfoContext(ctx, "llm call complete",
		"model", resp.Model,
		"provider", resp.Provider,
		"elapsed", elapsed,
		"finish", resp.FinishReason.Reason,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}
