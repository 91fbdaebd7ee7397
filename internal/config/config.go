// Package config loads veracity-node configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Command-line flags (applied by cmd)
//  2. Environment variables (VERACITY_*)
//  3. Config file
//  4. Built-in defaults
//
// Config file search order:
//  1. .veracity.yaml in current directory
//  2. ~/.config/veracity/config.yaml
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGenAI     = "genai"
)

// Config holds all veracity-node configuration.
type Config struct {
	// LLM settings
	Provider     string         `yaml:"provider"`
	Model        string         `yaml:"model"`
	BaseURL      string         `yaml:"base_url"`
	APIKey       string         `yaml:"api_key"`
	MaxTokens    int64          `yaml:"max_tokens"`
	ModelOptions map[string]any `yaml:"model_options"`

	// HTTP server
	ListenAddr     string `yaml:"listen_addr"`
	RequestTimeout string `yaml:"request_timeout"` // Go duration string, e.g. "60s"

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or console

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	RequestTimeoutDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Provider:       ProviderAnthropic,
		MaxTokens:      4096,
		ListenAddr:     ":8080",
		RequestTimeout: "60s",
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGenAI:
		return "gemini-2.0-flash"
	default:
		return "claude-sonnet-4-5"
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	return LoadWith(nil)
}

// LoadWith is Load with an extra layer applied after the environment, used
// by cmd for command-line flags. Provider-specific fallbacks (API key env
// vars, Azure base URL) are resolved after apply runs.
func LoadWith(apply func(*Config)) (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	applyFallbacks(cfg)

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize validates the provider, fills in the default model and parses
// durations.
func (c *Config) Finalize() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGenAI:
	default:
		return fmt.Errorf("unknown provider %q (supported: anthropic, openai, genai)", c.Provider)
	}
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}

	var err error
	c.RequestTimeoutDuration, err = parseDurationOrDisable(c.RequestTimeout, 60*time.Second)
	if err != nil {
		return fmt.Errorf("invalid request timeout %q: %w", c.RequestTimeout, err)
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".veracity.yaml"); err == nil {
		return ".veracity.yaml", data, nil
	}

	// 2. ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "veracity", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Provider != "" {
		cfg.Provider = file.Provider
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if len(file.ModelOptions) > 0 {
		cfg.ModelOptions = file.ModelOptions
	}
	if file.ListenAddr != "" {
		cfg.ListenAddr = file.ListenAddr
	}
	if file.RequestTimeout != "" {
		cfg.RequestTimeout = file.RequestTimeout
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	if v := os.Getenv("VERACITY_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("VERACITY_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("VERACITY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("VERACITY_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("VERACITY_MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid VERACITY_MAX_TOKENS %q: %w", v, err)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv("VERACITY_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("VERACITY_REQUEST_TIMEOUT"); v != "" {
		cfg.RequestTimeout = v
	}
	if v := os.Getenv("VERACITY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VERACITY_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
	return nil
}

// applyFallbacks fills the API key and base URL from provider-specific
// environment variables when they are still unset.
func applyFallbacks(cfg *Config) {
	// API key fallbacks, by provider
	if cfg.APIKey == "" {
		if v := os.Getenv("AZURE_OPENAI_API_KEY"); v != "" && cfg.Provider != ProviderGenAI {
			cfg.APIKey = v
		}
	}
	if cfg.APIKey == "" {
		switch cfg.Provider {
		case ProviderAnthropic:
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderOpenAI:
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderGenAI:
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
			if cfg.APIKey == "" {
				cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
			}
		}
	}

	// Azure base URL fallback
	if cfg.BaseURL == "" {
		if rn := os.Getenv("AZURE_RESOURCE_NAME"); rn != "" {
			cfg.BaseURL = AzureBaseURL(cfg.Provider, rn)
		}
	}
}

// AzureBaseURL returns the Azure endpoint for a provider and resource name,
// or "" when the provider is not hosted on Azure.
func AzureBaseURL(provider, resourceName string) string {
	switch provider {
	case ProviderAnthropic:
		// The Anthropic SDK appends v1/messages to the base URL.
		return fmt.Sprintf("https://%s.services.ai.azure.com/anthropic/", resourceName)
	case ProviderOpenAI:
		return fmt.Sprintf("https://%s.openai.azure.com/openai/v1", resourceName)
	default:
		return ""
	}
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// IsAzureEndpoint returns true if the URL is an Azure endpoint.
func IsAzureEndpoint(url string) bool {
	return strings.Contains(url, ".azure.com") || strings.Contains(url, ".azure.us")
}

// ParseOptions parses "key=value" pairs into model options. Values are
// decoded as JSON when possible ("0.2" is a number, "[\"a\"]" a list) and
// kept as plain strings otherwise.
func ParseOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q (want key=value)", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		opts[key] = v
	}
	return opts, nil
}

// MergeOptions returns base with overrides applied on top. Neither input is
// modified.
func MergeOptions(base, overrides map[string]any) map[string]any {
	if len(base) == 0 && len(overrides) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
