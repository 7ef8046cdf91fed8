package llm

import (
	"context"
	"log/slog"
	"time"
)

// LoggingProvider is a decorator that records every LLM request with
// latency and token usage.
type LoggingProvider struct {
	inner Provider
	log   *slog.Logger
}

// WithLogging wraps a Provider with structured request logging. A nil
// logger uses slog.Default.
func WithLogging(p Provider, log *slog.Logger) Provider {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingProvider{inner: p, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	attrs := []any{
		slog.String("model", l.inner.ModelID()),
		slog.Int64("latency_ms", time.Since(start).Milliseconds()),
	}
	if resp != nil {
		attrs = append(attrs,
			slog.Int("input_tokens", resp.Usage.InputTokens),
			slog.Int("output_tokens", resp.Usage.OutputTokens),
		)
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.log.WarnContext(ctx, "llm request failed", attrs...)
	} else {
		l.log.DebugContext(ctx, "llm request completed", attrs...)
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
