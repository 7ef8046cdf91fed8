package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// NewProvider creates a Provider from configuration, wrapped with retry
// and request logging middleware.
func NewProvider(ctx context.Context, cfg Config, log *slog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Caller → retry → logging → base.
	logged := WithLogging(base, log)
	return WithRetry(logged, cfg.Retry), nil
}
