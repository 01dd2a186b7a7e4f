package llm

import "time"

const (
	defaultLocalBaseURL = "http://localhost:11434/v1"
	defaultLocalModel   = "llama3"
	defaultLocalTimeout = 5 * time.Minute
)

// LocalProvider targets a self-hosted OpenAI-compatible endpoint
// (Ollama, llama.cpp server, vLLM). The wire protocol is OpenAI's, so
// the underlying SDK client is reused with a base URL override, a dummy
// API key and a much longer timeout: local inference on modest hardware
// can take minutes per request.
type LocalProvider struct {
	*OpenAIProvider
}

// NewLocalProvider creates a provider targeting the configured local
// endpoint, falling back to http://localhost:11434/v1 and "llama3" when
// unset.
func NewLocalProvider(cfg LocalConfig) (*LocalProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLocalBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultLocalModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLocalTimeout
	}

	oaiCfg := OpenAIConfig{
		APIKey:  "not-needed",
		Model:   model,
		BaseURL: baseURL,
	}

	inner, err := newOpenAIProviderRaw(oaiCfg, timeout)
	if err != nil {
		return nil, err
	}

	return &LocalProvider{OpenAIProvider: inner}, nil
}
