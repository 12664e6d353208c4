// Package config handles application configuration using Viper.
// Viper supports YAML files, environment variables, and defaults — merged in
// priority order. Configuration is loaded into structs, not accessed as raw
// key-value pairs.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related
// settings. `mapstructure` tags tell Viper how to map YAML/env keys to
// struct fields.
type Config struct {
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Prompts PromptsConfig `mapstructure:"prompts"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// EnrichConfig configures the outer pipeline: where input comes from, where
// results go, and which column holds the company names.
type EnrichConfig struct {
	InputPath    string `mapstructure:"input_path"`
	OutputPath   string `mapstructure:"output_path"`
	OutputFormat string `mapstructure:"output_format"` // "json" or "csv"
	TargetColumn string `mapstructure:"target_column"`
	// RatePerMinute paces provider attempts across the whole run.
	// 0 disables pacing.
	RatePerMinute int `mapstructure:"rate_per_minute"`
}

// LLMConfig configures the resolution chain.
type LLMConfig struct {
	// ProviderOrder controls which providers are tried and in what order.
	// First is primary, rest are fallbacks. The terminal "fallback" handler
	// is always appended and doesn't need listing.
	ProviderOrder []string `mapstructure:"provider_order"`
	// RequestTimeoutSeconds bounds each individual provider call.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`

	Perplexity ProviderConfig `mapstructure:"perplexity"`
	Gemini     ProviderConfig `mapstructure:"gemini"`
	OpenAI     ProviderConfig `mapstructure:"openai"`
	Anthropic  ProviderConfig `mapstructure:"anthropic"`
}

// ProviderConfig is one provider's binding: credentials plus model settings.
type ProviderConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type PromptsConfig struct {
	// Path to a YAML prompt library; empty means built-in defaults.
	Path string `mapstructure:"path"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults — these apply when neither file nor env provides a value
	v.SetDefault("enrich.input_path", "./data/companies.csv")
	v.SetDefault("enrich.output_path", "./data/enriched.json")
	v.SetDefault("enrich.output_format", "json")
	v.SetDefault("enrich.target_column", "company_name")
	v.SetDefault("enrich.rate_per_minute", 30)
	v.SetDefault("llm.provider_order", []string{"perplexity", "gemini"})
	v.SetDefault("llm.request_timeout_seconds", 60)
	// API keys default to empty. Viper only surfaces env values for keys it
	// already knows about, so without these defaults an env-only key like
	// ENRICH_LLM_PERPLEXITY_API_KEY would be dropped on Unmarshal.
	v.SetDefault("llm.perplexity.api_key", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.perplexity.model", "sonar")
	v.SetDefault("llm.perplexity.temperature", 0.1)
	v.SetDefault("llm.perplexity.max_tokens", 1024)
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.gemini.temperature", 0.1)
	v.SetDefault("llm.gemini.max_tokens", 1024)
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.openai.temperature", 0.1)
	v.SetDefault("llm.openai.max_tokens", 1024)
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.anthropic.temperature", 0.1)
	v.SetDefault("llm.anthropic.max_tokens", 1024)
	v.SetDefault("prompts.path", "")
	v.SetDefault("storage.database_path", "./storage/enrichment.db")
	v.SetDefault("log.level", "info")

	// Read from YAML config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file. Only "not found" is ignorable (defaults + env are
	// enough then); a file that exists but doesn't parse must abort the run,
	// not silently fall back to defaults.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// ENRICH_ prefix + nested keys: ENRICH_LLM_PERPLEXITY_API_KEY=...
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the constraints that must hold before any record is
// processed. Violations here abort the whole run.
func (c *Config) Validate() error {
	if c.Enrich.TargetColumn == "" {
		return fmt.Errorf("enrich.target_column must not be empty")
	}
	if c.Enrich.OutputFormat != "json" && c.Enrich.OutputFormat != "csv" {
		return fmt.Errorf("enrich.output_format must be json or csv, got %q", c.Enrich.OutputFormat)
	}
	if c.Enrich.RatePerMinute < 0 {
		return fmt.Errorf("enrich.rate_per_minute must not be negative")
	}
	if c.LLM.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("llm.request_timeout_seconds must not be negative")
	}

	for _, name := range c.LLM.ProviderOrder {
		p, ok := c.Provider(name)
		if !ok {
			// Unknown names are rejected with the full factory map at chain
			// build time; "fallback" is always legal here.
			continue
		}
		if p.Temperature < 0 || p.Temperature > 1 {
			return fmt.Errorf("llm.%s.temperature must be in [0,1], got %g", name, p.Temperature)
		}
		if p.MaxTokens <= 0 {
			return fmt.Errorf("llm.%s.max_tokens must be positive, got %d", name, p.MaxTokens)
		}
	}
	return nil
}

// Provider returns the configuration block for a provider name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "perplexity":
		return c.LLM.Perplexity, true
	case "gemini":
		return c.LLM.Gemini, true
	case "openai":
		return c.LLM.OpenAI, true
	case "anthropic":
		return c.LLM.Anthropic, true
	default:
		return ProviderConfig{}, false
	}
}
