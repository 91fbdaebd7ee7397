package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// envKeys are cleared before every Load test so the host environment
// cannot leak in.
var envKeys = []string{
	"VERACITY_PROVIDER", "VERACITY_MODEL", "VERACITY_API_KEY", "VERACITY_BASE_URL",
	"VERACITY_MAX_TOKENS", "VERACITY_LISTEN_ADDR", "VERACITY_REQUEST_TIMEOUT",
	"VERACITY_LOG_LEVEL", "VERACITY_LOG_FORMAT",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
	"AZURE_OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
	"GEMINI_API_KEY", "GOOGLE_API_KEY", "AZURE_RESOURCE_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	// Keep ~/.config out of the search path.
	t.Setenv("HOME", t.TempDir())
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "anthropic")
	}
	if cfg.MaxTokens != 4096 {
		t.Errorf("MaxTokens: got %d, want %d", cfg.MaxTokens, 4096)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr: got %q, want %q", cfg.ListenAddr, ":8080")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: got %q, want %q", cfg.LogFormat, "json")
	}
}

func TestDefaultModel(t *testing.T) {
	tests := map[string]string{
		"anthropic": "claude-sonnet-4-5",
		"openai":    "gpt-4o-mini",
		"genai":     "gemini-2.0-flash",
	}
	for provider, want := range tests {
		if got := DefaultModel(provider); got != want {
			t.Errorf("DefaultModel(%q) = %q, want %q", provider, got, want)
		}
	}
}

func TestIsAzureEndpoint(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://myresource.openai.azure.com/openai/v1", true},
		{"https://myresource.services.ai.azure.com/anthropic/", true},
		{"https://myresource.azure.us/foo", true},
		{"https://api.anthropic.com/", false},
		{"https://api.openai.com/v1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := IsAzureEndpoint(tt.url)
			if got != tt.want {
				t.Errorf("IsAzureEndpoint(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestParseDurationOrDisable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMs  int64
		wantErr bool
	}{
		{"empty returns fallback", "", 5000, false},
		{"zero disables", "0", 0, false},
		{"off disables", "off", 0, false},
		{"disable disables", "disable", 0, false},
		{"valid duration", "30s", 30000, false},
		{"valid short duration", "500ms", 500, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationOrDisable(tt.input, 5*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationOrDisable(%q): error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Milliseconds() != tt.wantMs {
				t.Errorf("parseDurationOrDisable(%q) = %v, want %dms", tt.input, got, tt.wantMs)
			}
		})
	}
}

func TestParseOptions(t *testing.T) {
	got, err := ParseOptions([]string{
		"temperature=0.2",
		"max_tokens=8",
		`stop=["\n"]`,
		"user=pipeline-7",
		"note=a=b",
	})
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}

	want := map[string]any{
		"temperature": 0.2,
		"max_tokens":  float64(8),
		"stop":        []any{"\n"},
		"user":        "pipeline-7",
		"note":        "a=b",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseOptions mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseOptions([]string{"novalue"}); err == nil {
		t.Error("expected error for pair without '='")
	}
	if got, _ := ParseOptions(nil); got != nil {
		t.Errorf("ParseOptions(nil) = %v, want nil", got)
	}
}

func TestMergeOptions(t *testing.T) {
	base := map[string]any{"temperature": 0.0, "top_p": 1.0}
	got := MergeOptions(base, map[string]any{"temperature": 0.5})

	want := map[string]any{"temperature": 0.5, "top_p": 1.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeOptions mismatch (-want +got):\n%s", diff)
	}
	if base["temperature"] != 0.0 {
		t.Error("MergeOptions modified base")
	}
	if MergeOptions(nil, nil) != nil {
		t.Error("MergeOptions(nil, nil) should be nil")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	content := `provider: openai
model: gpt-4.1-mini
api_key: test-key-123
max_tokens: 16
model_options:
  temperature: 0
  stop: ["\n"]
listen_addr: "127.0.0.1:9090"
request_timeout: "15s"
log_level: debug
log_format: console
`
	if err := os.WriteFile(filepath.Join(dir, ".veracity.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ConfigFile != ".veracity.yaml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "openai")
	}
	if cfg.Model != "gpt-4.1-mini" {
		t.Errorf("Model: got %q, want %q", cfg.Model, "gpt-4.1-mini")
	}
	if cfg.APIKey != "test-key-123" {
		t.Errorf("APIKey: got %q, want %q", cfg.APIKey, "test-key-123")
	}
	if cfg.MaxTokens != 16 {
		t.Errorf("MaxTokens: got %d, want %d", cfg.MaxTokens, 16)
	}
	wantOpts := map[string]any{"temperature": 0, "stop": []any{"\n"}}
	if diff := cmp.Diff(wantOpts, cfg.ModelOptions); diff != "" {
		t.Errorf("ModelOptions mismatch (-want +got):\n%s", diff)
	}
	if cfg.ListenAddr != "127.0.0.1:9090" {
		t.Errorf("ListenAddr: got %q", cfg.ListenAddr)
	}
	if cfg.RequestTimeoutDuration != 15*time.Second {
		t.Errorf("RequestTimeoutDuration: got %v, want 15s", cfg.RequestTimeoutDuration)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "console" {
		t.Errorf("logging: got %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	content := `provider: openai
model: gpt-4o-mini
api_key: file-key
`
	if err := os.WriteFile(filepath.Join(dir, ".veracity.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	t.Setenv("VERACITY_PROVIDER", "anthropic")
	t.Setenv("VERACITY_MODEL", "claude-haiku-4-5")
	t.Setenv("VERACITY_API_KEY", "env-key")
	t.Setenv("VERACITY_MAX_TOKENS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider: got %q, want %q (env should override file)", cfg.Provider, "anthropic")
	}
	if cfg.Model != "claude-haiku-4-5" {
		t.Errorf("Model: got %q, want %q (env should override file)", cfg.Model, "claude-haiku-4-5")
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey: got %q, want %q (env should override file)", cfg.APIKey, "env-key")
	}
	if cfg.MaxTokens != 8 {
		t.Errorf("MaxTokens: got %d, want 8", cfg.MaxTokens)
	}
}

func TestLoad_ProviderKeyFallbacks(t *testing.T) {
	tests := []struct {
		provider string
		env      string
		want     string
	}{
		{"anthropic", "ANTHROPIC_API_KEY", "sk-ant"},
		{"openai", "OPENAI_API_KEY", "sk-oai"},
		{"genai", "GEMINI_API_KEY", "gm-key"},
		{"genai", "GOOGLE_API_KEY", "g-key"},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.env, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv("VERACITY_PROVIDER", tt.provider)
			t.Setenv(tt.env, tt.want)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.APIKey != tt.want {
				t.Errorf("APIKey: got %q, want %q", cfg.APIKey, tt.want)
			}
			if cfg.Model != DefaultModel(tt.provider) {
				t.Errorf("Model: got %q, want default %q", cfg.Model, DefaultModel(tt.provider))
			}
		})
	}
}

func TestLoad_AzureBaseURL(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("VERACITY_PROVIDER", "openai")
	t.Setenv("AZURE_RESOURCE_NAME", "myres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BaseURL != "https://myres.openai.azure.com/openai/v1" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown provider", "VERACITY_PROVIDER", "cohere"},
		{"bad max tokens", "VERACITY_MAX_TOKENS", "lots"},
		{"bad timeout", "VERACITY_REQUEST_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".veracity.yaml"), []byte("provider: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadWith_AppliesAfterEnv(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("VERACITY_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-oai")

	cfg, err := LoadWith(func(c *Config) {
		c.Provider = ProviderOpenAI
		c.ModelOptions = MergeOptions(c.ModelOptions, map[string]any{"temperature": 0.0})
	})
	if err != nil {
		t.Fatalf("LoadWith() error: %v", err)
	}

	// Key fallback and default model follow the overridden provider.
	if cfg.APIKey != "sk-oai" {
		t.Errorf("APIKey: got %q, want %q", cfg.APIKey, "sk-oai")
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model: got %q, want %q", cfg.Model, "gpt-4o-mini")
	}
	if diff := cmp.Diff(map[string]any{"temperature": 0.0}, cfg.ModelOptions); diff != "" {
		t.Errorf("ModelOptions mismatch (-want +got):\n%s", diff)
	}
}
