// Package main provides the company-enrich CLI. Uses Cobra for command
// parsing — the standard Go CLI framework (kubectl, docker, hugo).
//
// Run with: go run ./cmd/cli run --config config.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/chain"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/config"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/dataset"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/llm"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/prompt"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/service"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "company-enrich",
		Short: "Enrich a CSV of company names with structured metadata from generative-AI providers",
	}

	root.AddCommand(runCmd())
	return root
}

func runCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve every input row through the provider chain and write the results",
		// RunE returns an error (vs Run which doesn't). Cobra prints it automatically.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrichment(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", os.Getenv("ENRICH_CONFIG_PATH"), "Path to config.yaml")
	return cmd
}

func runEnrichment(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Always use development mode for CLI — human-readable output.
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Read the input up front: a missing target column aborts the run before
	// any provider is touched.
	records, err := dataset.ReadCSV(cfg.Enrich.InputPath, cfg.Enrich.TargetColumn)
	if err != nil {
		return err
	}
	logger.Info("input loaded",
		zap.String("path", cfg.Enrich.InputPath),
		zap.Int("records", len(records)),
	)

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	callRepo := storage.NewCallRepository(db)

	prompts, err := prompt.Load(cfg.Prompts.Path)
	if err != nil {
		return err
	}

	// Set up context with cancellation (Ctrl+C stops the run gracefully;
	// partial results are still written).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("cancelling run...")
		cancel()
	}()

	resolution, err := buildChain(ctx, cfg, prompts, callRepo, logger)
	if err != nil {
		return err
	}

	enricher := service.NewEnricher(resolution, logger)
	results, stats, runErr := enricher.Run(ctx, records)

	if len(results) > 0 || runErr == nil {
		if err := dataset.Write(cfg.Enrich.OutputPath, cfg.Enrich.OutputFormat, results); err != nil {
			return err
		}
		logger.Info("results written",
			zap.String("path", cfg.Enrich.OutputPath),
			zap.String("format", cfg.Enrich.OutputFormat),
		)
	}

	// The call log also carries the attempts that failed, which the
	// winning-answer stats don't see.
	if totals, err := storage.Totals(context.Background(), callRepo, cfg.LLM.ProviderOrder); err == nil {
		logger.Info("run summary",
			zap.Int("records", stats.Total),
			zap.Int("fallback", stats.Fallback),
			zap.Any("by_handler", stats.ByHandler),
			zap.Float64("answer_cost", stats.TotalCost),
			zap.Int64("provider_calls", totals.Calls),
			zap.Any("attempts_by_provider", totals.ByProvider),
			zap.Float64("total_call_cost", totals.Cost),
		)
	}

	return runErr
}

// buildChain turns the declarative provider order into a live resolution
// chain. Factories are lazy: only providers actually listed in the order are
// constructed, so unused providers don't need credentials.
func buildChain(ctx context.Context, cfg *config.Config, prompts *prompt.Library, callRepo storage.CallRepository, logger *zap.Logger) (*chain.Chain, error) {
	timeout := time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second

	handlerFor := func(name string, client llm.Client, p config.ProviderConfig) chain.Handler {
		return chain.NewProviderHandler(client, chain.HandlerConfig{
			Params: llm.ModelParams{
				ModelName:   p.Model,
				Temperature: p.Temperature,
				MaxTokens:   p.MaxTokens,
			},
			Template:     prompts.ForProvider(name),
			TargetColumn: cfg.Enrich.TargetColumn,
			Timeout:      timeout,
			Calls:        callRepo,
			Logger:       logger,
		})
	}

	requireKey := func(name, key string) error {
		if key == "" {
			return fmt.Errorf("llm.%s.api_key is not set (env: ENRICH_LLM_%s_API_KEY)", name, strings.ToUpper(name))
		}
		return nil
	}

	factories := map[string]chain.Factory{
		"perplexity": func() (chain.Handler, error) {
			p := cfg.LLM.Perplexity
			if err := requireKey("perplexity", p.APIKey); err != nil {
				return nil, err
			}
			return handlerFor("perplexity", llm.NewPerplexityClient(p.APIKey, p.Model, ""), p), nil
		},
		"gemini": func() (chain.Handler, error) {
			p := cfg.LLM.Gemini
			client, err := llm.NewGeminiClient(ctx, p.APIKey, p.Model)
			if err != nil {
				return nil, err
			}
			return handlerFor("gemini", client, p), nil
		},
		"openai": func() (chain.Handler, error) {
			p := cfg.LLM.OpenAI
			if err := requireKey("openai", p.APIKey); err != nil {
				return nil, err
			}
			return handlerFor("openai", llm.NewOpenAIClient(p.APIKey, p.Model), p), nil
		},
		"anthropic": func() (chain.Handler, error) {
			p := cfg.LLM.Anthropic
			if err := requireKey("anthropic", p.APIKey); err != nil {
				return nil, err
			}
			return handlerFor("anthropic", llm.NewAnthropicClient(p.APIKey, p.Model), p), nil
		},
	}

	fallback := chain.NewFallbackHandler(cfg.Enrich.TargetColumn, logger)
	return chain.Build(cfg.LLM.ProviderOrder, factories, fallback, cfg.Enrich.RatePerMinute, logger)
}
