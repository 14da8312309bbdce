package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/overhuman/replyd/internal/brain"
	"github.com/overhuman/replyd/internal/config"
	"github.com/overhuman/replyd/internal/httpapi"
	"github.com/overhuman/replyd/internal/observability"
	"github.com/overhuman/replyd/internal/pipeline"
	"github.com/overhuman/replyd/internal/prompts"
)

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:   appName,
		Short: "LLM pipelines for user summaries, cast replies and embeddings",
		Long: `replyd runs three fixed LLM pipelines behind an HTTP API:

  user-summary     summarize-user-data -> embed-summary
  reply            check-intent -> discover-content -> generate-reply
  embeddings       prepare-text -> embed-text

Settings come from an optional YAML file (--config) and the environment
(OPENAI_API_KEY, REPLYD_ADDR, REPLYD_PROVIDER, ...).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file")

	root.AddCommand(
		newServeCmd(&flags),
		newRunCmd(&flags),
		newStatusCmd(&flags),
		newStopCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appName, version)
		},
	}
}

// loadConfig reads and validates the configuration.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) *observability.Logger {
	return observability.NewLoggerWithOptions(appName, w, observability.LoggerOptions{
		Level:  observability.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
}

// bootstrap builds the providers and the three pipelines from cfg.
func bootstrap(cfg config.Config, logger *observability.Logger) (httpapi.Pipelines, error) {
	var openaiOpts []brain.OpenAIOption
	if cfg.OpenAI.BaseURL != "" {
		openaiOpts = append(openaiOpts, brain.WithOpenAIBaseURL(cfg.OpenAI.BaseURL))
	}
	openai := brain.NewOpenAIProvider(cfg.OpenAI.APIKey, openaiOpts...)

	// Embeddings always go to OpenAI; completions follow cfg.Provider.
	var llm brain.LLMProvider = openai
	if cfg.Provider == config.ProviderClaude {
		var claudeOpts []brain.ClaudeOption
		if cfg.Anthropic.BaseURL != "" {
			claudeOpts = append(claudeOpts, brain.WithClaudeBaseURL(cfg.Anthropic.BaseURL))
		}
		llm = brain.NewClaudeProvider(cfg.Anthropic.APIKey, claudeOpts...)
	}

	router := brain.NewModelRouterWithModels(cfg.ModelEntries())
	client := brain.NewClient(llm, openai, router,
		brain.WithCallTimeout(cfg.ProviderTimeout),
		brain.WithMaxTokens(cfg.MaxTokens),
		brain.WithLogger(logger),
	)

	set, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return httpapi.Pipelines{}, fmt.Errorf("load prompts: %w", err)
	}

	logger.Info("bootstrap complete",
		"provider", llm.Name(),
		"reasoning_model", router.Select(brain.RoleReasoning),
		"generation_model", router.Select(brain.RoleGeneration),
		"embedding_model", router.Select(brain.RoleEmbedding),
	)

	deps := pipeline.Dependencies{
		Completer: client,
		Embedder:  client,
		Prompts:   set,
		Logger:    logger,
	}
	return httpapi.Pipelines{
		UserSummary: pipeline.NewUserSummaryPipeline(deps),
		Reply:       pipeline.NewReplyPipeline(deps),
		Embeddings:  pipeline.NewEmbeddingsPipeline(deps),
	}, nil
}
