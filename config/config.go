// Package config loads, validates and hot-reloads the daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"ghosttext/types"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Multiline modes for ghost text rendering
const (
	MultilineAuto   = "auto"
	MultilineAlways = "always"
	MultilineNever  = "never"
)

// Config is the full daemon configuration
type Config struct {
	Provider  ProviderSettings  `yaml:"provider"`
	Engine    EngineSettings    `yaml:"engine"`
	Log       LogSettings       `yaml:"log"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
}

// ProviderSettings selects and configures the completion backend
type ProviderSettings struct {
	Type            string  `yaml:"type"`
	URL             string  `yaml:"url"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	MaxPromptTokens int     `yaml:"max_prompt_tokens"`
	CompletionPath  string  `yaml:"completion_path"`
	TimeoutMs       int     `yaml:"timeout_ms"`
}

// EngineSettings tunes the completion pipeline
type EngineSettings struct {
	DebounceMs     int      `yaml:"debounce_ms"`
	Multiline      string   `yaml:"multiline"`
	DisableInFiles []string `yaml:"disable_in_files"`
}

// LogSettings configures the log file
type LogSettings struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// TelemetrySettings configures outcome reporting
type TelemetrySettings struct {
	Enabled     bool `yaml:"enabled"`
	PrivacyMode bool `yaml:"privacy_mode"`
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	return &Config{
		Provider: ProviderSettings{
			Type:            string(types.ProviderTypeOpenAI),
			URL:             "http://localhost:8000",
			APIKeyEnv:       "GHOSTTEXT_API_KEY",
			Temperature:     0.2,
			MaxTokens:       512,
			MaxPromptTokens: 4096,
			CompletionPath:  "/v1/completions",
			TimeoutMs:       10000,
		},
		Engine: EngineSettings{
			DebounceMs: 150,
			Multiline:  MultilineAuto,
		},
		Log: LogSettings{
			Level: "info",
		},
		Telemetry: TelemetrySettings{
			Enabled: true,
		},
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch types.ProviderType(c.Provider.Type) {
	case types.ProviderTypeOpenAI, types.ProviderTypeGemini, types.ProviderTypeGhostAPI:
	default:
		return fmt.Errorf("unknown provider type %q", c.Provider.Type)
	}

	switch c.Engine.Multiline {
	case MultilineAuto, MultilineAlways, MultilineNever:
	default:
		return fmt.Errorf("invalid multiline mode %q (want auto, always or never)", c.Engine.Multiline)
	}

	if c.Engine.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms must not be negative")
	}

	for _, pattern := range c.Engine.DisableInFiles {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid disable_in_files pattern %q", pattern)
		}
	}
	return nil
}

// ProviderConfig resolves the provider settings into the shape the provider
// factory takes, reading the API key from the configured environment variable.
func (c *Config) ProviderConfig() *types.ProviderConfig {
	apiKey := ""
	if c.Provider.APIKeyEnv != "" {
		apiKey = os.Getenv(c.Provider.APIKeyEnv)
	}
	return &types.ProviderConfig{
		ProviderURL:         c.Provider.URL,
		APIKey:              apiKey,
		ProviderModel:       c.Provider.Model,
		ProviderTemperature: c.Provider.Temperature,
		ProviderMaxTokens:   c.Provider.MaxTokens,
		MaxPromptTokens:     c.Provider.MaxPromptTokens,
		CompletionPath:      c.Provider.CompletionPath,
		CompletionTimeout:   c.Provider.TimeoutMs,
		PrivacyMode:         c.Telemetry.PrivacyMode,
	}
}

// ShouldDisable reports whether completions are disabled for the file at
// path. Patterns match against the slash-normalized full path and against
// the base name, so "*.env" works without a leading "**/".
func (c *Config) ShouldDisable(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range c.Engine.DisableInFiles {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
