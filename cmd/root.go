package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timvw/veracity-node/internal/completion"
	"github.com/timvw/veracity-node/internal/config"
	"github.com/timvw/veracity-node/internal/logging"
	telem "github.com/timvw/veracity-node/internal/otel"
	"github.com/timvw/veracity-node/internal/veracity"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	// Global flags.
	flagProvider  string
	flagModel     string
	flagBaseURL   string
	flagAPIKey    string
	flagMaxTokens int64
	flagOptions   []string
	flagLogLevel  string
	flagLogFormat string
)

var (
	// Resolved in PersistentPreRunE.
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "veracity",
	Short: "LLM-judged True/False check for question answering pipelines",
	Long: `veracity asks a language model whether a candidate answer answers a query.

When the model replies "True" the payload is forwarded unchanged. Otherwise
the results field is replaced with "The question was not answered correctly".
The payload always leaves on the single edge output_1.

Configuration is read from .veracity.yaml or ~/.config/veracity/config.yaml,
then VERACITY_* environment variables, then flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		l, err := logging.New(c.LogLevel, c.LogFormat)
		if err != nil {
			return err
		}
		cfg, logger = c, l
		if cfg.ConfigFile != "" {
			logger.Debug("config loaded", zap.String("path", cfg.ConfigFile))
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider: anthropic, openai, genai (default: anthropic)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "LLM model name (default: claude-sonnet-4-5, gpt-4o-mini or gemini-2.0-flash by provider)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override LLM API base URL")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "override LLM API key")
	rootCmd.PersistentFlags().Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens (default: 4096)")
	rootCmd.PersistentFlags().StringArrayVar(&flagOptions, "option", nil, "model option as key=value, JSON-decoded when possible (repeatable)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: json, console (default: json)")
}

// loadConfig resolves defaults -> config file -> env vars -> flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts, err := config.ParseOptions(flagOptions)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	c, err := config.LoadWith(func(c *config.Config) {
		if flags.Changed("provider") {
			c.Provider = flagProvider
		}
		if flags.Changed("model") {
			c.Model = flagModel
		}
		if flags.Changed("base-url") {
			c.BaseURL = flagBaseURL
		}
		if flags.Changed("api-key") {
			c.APIKey = flagAPIKey
		}
		if flags.Changed("max-tokens") {
			c.MaxTokens = flagMaxTokens
		}
		if flags.Changed("log-level") {
			c.LogLevel = flagLogLevel
		}
		if flags.Changed("log-format") {
			c.LogFormat = flagLogFormat
		}
		c.ModelOptions = config.MergeOptions(c.ModelOptions, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// newNode builds the veracity node for the resolved configuration.
func newNode(ctx context.Context, metrics *telem.Metrics, opts ...veracity.Option) (*veracity.Node, error) {
	c, err := newCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]veracity.Option{veracity.WithLogger(logger), veracity.WithMetrics(metrics)}, opts...)
	return veracity.New(c, veracity.Config{
		Model:   cfg.Model,
		Options: cfg.ModelOptions,
	}, opts...), nil
}

// newCompleter returns the configured provider completer.
func newCompleter(ctx context.Context, c *config.Config) (completion.Provider, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("no API key found for provider %s. Set VERACITY_API_KEY, --api-key or %s", c.Provider, providerKeyEnv(c.Provider))
	}

	switch c.Provider {
	case config.ProviderAnthropic:
		return completion.NewAnthropicCompleter(completion.AnthropicConfig{
			BaseURL:      c.BaseURL,
			APIKey:       c.APIKey,
			Model:        c.Model,
			MaxTokens:    c.MaxTokens,
			ExtraHeaders: azureHeaders(c),
		}), nil
	case config.ProviderOpenAI:
		return completion.NewOpenAICompleter(completion.OpenAIConfig{
			BaseURL:      c.BaseURL,
			APIKey:       c.APIKey,
			Model:        c.Model,
			MaxTokens:    c.MaxTokens,
			ExtraHeaders: azureHeaders(c),
		}), nil
	case config.ProviderGenAI:
		g, err := completion.NewGenAICompleter(ctx, completion.GenAIConfig{
			BaseURL:   c.BaseURL,
			APIKey:    c.APIKey,
			Model:     c.Model,
			MaxTokens: c.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: anthropic, openai, genai)", c.Provider)
	}
}

// azureHeaders returns the extra headers Azure AI Foundry needs: it reads
// "api-key" while the SDKs send their own auth header.
func azureHeaders(c *config.Config) map[string]string {
	if os.Getenv("AZURE_RESOURCE_NAME") != "" || config.IsAzureEndpoint(c.BaseURL) {
		return map[string]string{"api-key": c.APIKey}
	}
	return nil
}

func providerKeyEnv(provider string) string {
	switch provider {
	case config.ProviderOpenAI:
		return "AZURE_OPENAI_API_KEY or OPENAI_API_KEY"
	case config.ProviderGenAI:
		return "GEMINI_API_KEY or GOOGLE_API_KEY"
	default:
		return "AZURE_OPENAI_API_KEY or ANTHROPIC_API_KEY"
	}
}
