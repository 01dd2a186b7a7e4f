// Package config loads the examgen.yaml file and layers environment
// overrides on top of built-in defaults. Flag values are applied last,
// by the command layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evolutia/examgen/internal/llm"
)

// FileName is the config file looked up in the material directory and
// the current directory.
const FileName = "examgen.yaml"

// Config is the on-disk configuration shape.
type Config struct {
	Provider string `yaml:"provider"`

	Anthropic struct {
		Model string `yaml:"model"`
	} `yaml:"anthropic"`

	OpenAI struct {
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`

	Gemini struct {
		Model string `yaml:"model"`
	} `yaml:"gemini"`

	Local struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"local"`

	Generation struct {
		Count       int      `yaml:"count"`
		Difficulty  string   `yaml:"difficulty"`
		MaxTokens   int      `yaml:"max_tokens"`
		Temperature float64  `yaml:"temperature"`
		Topics      []string `yaml:"topics"`
	} `yaml:"generation"`

	OutputDir string `yaml:"output_dir"`
}

// Load reads the config file at path. A missing file is not an error
// and yields a zero Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

// Discover looks for the config file in the material directory first,
// then the working directory. Returns "" when neither exists.
func Discover(materialDir string) string {
	for _, dir := range []string{materialDir, "."} {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LLMConfig builds the backend configuration: defaults, then the file,
// then the environment. API keys never come from the file.
func (c *Config) LLMConfig() llm.Config {
	lc := llm.DefaultConfig()

	if c.Provider != "" {
		lc.Provider = c.Provider
	}
	if c.Anthropic.Model != "" {
		lc.Anthropic.Model = c.Anthropic.Model
	}
	if c.OpenAI.Model != "" {
		lc.OpenAI.Model = c.OpenAI.Model
	}
	if c.OpenAI.BaseURL != "" {
		lc.OpenAI.BaseURL = c.OpenAI.BaseURL
	}
	if c.Gemini.Model != "" {
		lc.Gemini.Model = c.Gemini.Model
	}
	if c.Local.BaseURL != "" {
		lc.Local.BaseURL = c.Local.BaseURL
	}
	if c.Local.Model != "" {
		lc.Local.Model = c.Local.Model
	}
	if c.Local.Timeout != "" {
		if d, err := time.ParseDuration(c.Local.Timeout); err == nil {
			lc.Local.Timeout = d
		}
	}

	lc.ApplyEnv()
	return lc
}
