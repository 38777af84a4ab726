// Package config loads the engine configuration from config.yaml with
// environment variable overrides. Environment variables always win; secrets
// (API keys, DSNs) are env-only and never read from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/sqlmend/sqlmend/pkg/adapters/datasource"
	"github.com/sqlmend/sqlmend/pkg/llm"
	"github.com/sqlmend/sqlmend/pkg/pipeline"
	"github.com/sqlmend/sqlmend/pkg/repair"
)

// Config holds all configuration for sqlmend. Immutable after Load; thread it
// through constructors, never mutate it.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // set at load time from the build, not from config

	// SchemaFile is the schema context packet (JSON) handed to the engine.
	SchemaFile string `yaml:"schema_file" env:"SCHEMA_FILE" env-default:"schema.json"`

	LLM        LLMConfig         `yaml:"llm"`
	Datasource datasource.Config `yaml:"datasource"`
	Pipeline   pipeline.Config   `yaml:"pipeline"`

	// RiskPairsStr configures the rewrite risk blacklist as a comma-separated
	// list: "name:number:block,amount:total:penalize:0.2". Empty keeps the
	// built-in defaults.
	RiskPairsStr string `yaml:"risk_pairs" env:"REPAIR_RISK_PAIRS" env-default:""`

	// RiskPairs is parsed from RiskPairsStr (not from config file).
	RiskPairs []repair.RiskPair `yaml:"-"`
}

// LLMConfig holds the generator endpoints.
type LLMConfig struct {
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	// Embedding endpoint is always OpenAI-compatible; empty falls back to the
	// chat endpoint.
	EmbeddingEndpoint string `yaml:"embedding_endpoint" env:"LLM_EMBEDDING_ENDPOINT" env-default:""`
	EmbeddingModel    string `yaml:"embedding_model" env:"LLM_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`

	Breaker llm.CircuitBreakerConfig `yaml:"breaker"`
}

// Factory converts to the llm package's factory configuration.
func (c LLMConfig) Factory() llm.FactoryConfig {
	return llm.FactoryConfig{
		Provider: llm.Provider(c.Provider),
		Chat: llm.ClientConfig{
			Endpoint: c.Endpoint,
			Model:    c.Model,
			APIKey:   c.APIKey,
		},
		Embedding: llm.ClientConfig{
			Endpoint: c.EmbeddingEndpoint,
			Model:    c.EmbeddingModel,
			APIKey:   c.APIKey,
		},
		Breaker: c.Breaker,
	}
}

// Load reads configuration from path with environment variable overrides.
// A missing file is not an error: everything then comes from env vars and
// defaults. The version parameter is injected at build time.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	pairs, err := parseRiskPairs(cfg.RiskPairsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid risk_pairs: %w", err)
	}
	cfg.RiskPairs = pairs

	return cfg, nil
}

// Blacklist builds the configured risk blacklist, or the default one when no
// pairs were configured.
func (c *Config) Blacklist() *repair.Blacklist {
	if len(c.RiskPairs) == 0 {
		return repair.DefaultBlacklist()
	}
	return repair.NewBlacklist(c.RiskPairs)
}

// parseRiskPairs parses "a:b:block" / "a:b:penalize:0.2" entries.
func parseRiskPairs(value string) ([]repair.RiskPair, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var pairs []repair.RiskPair
	for _, entry := range strings.Split(value, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 3 {
			return nil, fmt.Errorf("entry %q: want a:b:action", entry)
		}
		pair := repair.RiskPair{A: parts[0], B: parts[1]}
		switch parts[2] {
		case string(repair.BlacklistBlock):
			pair.Action = repair.BlacklistBlock
		case string(repair.BlacklistPenalize):
			pair.Action = repair.BlacklistPenalize
			if len(parts) < 4 {
				return nil, fmt.Errorf("entry %q: penalize needs a penalty", entry)
			}
			penalty, err := strconv.ParseFloat(parts[3], 64)
			if err != nil {
				return nil, fmt.Errorf("entry %q: bad penalty: %w", entry, err)
			}
			pair.Penalty = penalty
		default:
			return nil, fmt.Errorf("entry %q: unknown action %q", entry, parts[2])
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
