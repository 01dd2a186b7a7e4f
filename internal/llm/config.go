package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all generation backend configuration. It is built once at
// run start and passed to NewProvider; nothing below the factory reads
// the environment.
type Config struct {
	// Provider selects which backend to use.
	// Values: "anthropic", "openai", "gemini", "local", "mock"
	Provider string

	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Local     LocalConfig

	// Timeout is the maximum duration for a single cloud request.
	// Default: 120s. The local endpoint has its own, longer timeout.
	Timeout time.Duration
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-sonnet"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o"
	BaseURL string // Optional override for OpenAI-compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-pro"
}

// LocalConfig holds configuration for a self-hosted OpenAI-compatible
// endpoint (Ollama, llama.cpp server, vLLM).
type LocalConfig struct {
	BaseURL string        // Default: "http://localhost:11434/v1"
	Model   string        // Default: "llama3"
	Timeout time.Duration // Default: 5m. Local inference is slow.
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Gemini: GeminiConfig{
			Model: "gemini-pro",
		},
		Local: LocalConfig{
			BaseURL: defaultLocalBaseURL,
			Model:   defaultLocalModel,
			Timeout: 5 * time.Minute,
		},
		Timeout: 120 * time.Second,
	}
}

// ApplyEnv overlays environment variables onto the config. The standard
// provider key variables are honored alongside the EXAMGEN_* overrides.
func (c *Config) ApplyEnv() {
	if p := os.Getenv("EXAMGEN_PROVIDER"); p != "" {
		c.Provider = p
	}

	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		c.Anthropic.APIKey = k
	}
	if m := os.Getenv("EXAMGEN_ANTHROPIC_MODEL"); m != "" {
		c.Anthropic.Model = m
	}

	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		c.OpenAI.APIKey = k
	}
	if m := os.Getenv("EXAMGEN_OPENAI_MODEL"); m != "" {
		c.OpenAI.Model = m
	}
	if u := os.Getenv("EXAMGEN_OPENAI_BASE_URL"); u != "" {
		c.OpenAI.BaseURL = u
	}

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		c.Gemini.APIKey = k
	} else if k := os.Getenv("GOOGLE_API_KEY"); k != "" {
		c.Gemini.APIKey = k
	}
	if m := os.Getenv("EXAMGEN_GEMINI_MODEL"); m != "" {
		c.Gemini.Model = m
	}

	if u := os.Getenv("EXAMGEN_LOCAL_BASE_URL"); u != "" {
		c.Local.BaseURL = u
	}
	if m := os.Getenv("EXAMGEN_LOCAL_MODEL"); m != "" {
		c.Local.Model = m
	}
}

// Validate checks that the selected provider is known and has its
// required credential set. Failures are ConfigErrors: the run must not
// start.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return &ConfigError{Msg: "ANTHROPIC_API_KEY is required for the anthropic provider"}
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return &ConfigError{Msg: "OPENAI_API_KEY is required for the openai provider"}
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return &ConfigError{Msg: "GEMINI_API_KEY is required for the gemini provider"}
		}
	case "local", "mock":
		// No credential needed.
	default:
		return &ConfigError{Msg: fmt.Sprintf("unknown LLM provider: %q", c.Provider)}
	}
	return nil
}
