package llm

import (
	"context"
	"fmt"

	"github.com/evolutia/examgen/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped with the
// event-logging middleware. There is no retry middleware: the acceptance
// loop owns the retry budget, one backend call per attempt.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI, cfg.Timeout)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "local":
		base, err = NewLocalProvider(cfg.Local)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, &ConfigError{Msg: fmt.Sprintf("unknown LLM provider: %q", cfg.Provider)}
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	if eventRepo != nil {
		return WithLogging(base, cfg.Provider, eventRepo), nil
	}
	return base, nil
}
