// Package config loads supportctl configuration from an optional YAML file
// and SUPPORT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Mohamed711/customer-support-agent/logging"
)

// EnvPrefix prefixes every environment override (SUPPORT_MODEL_PROVIDER, ...).
const EnvPrefix = "SUPPORT"

// Config holds all configuration for the orchestrator.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Store      StoreConfig      `mapstructure:"store"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
}

// ModelConfig selects the language model backend.
type ModelConfig struct {
	Provider      string  `mapstructure:"provider"` // openai, anthropic or mock
	Name          string  `mapstructure:"name"`
	Temperature   float64 `mapstructure:"temperature"`
	APIKey        string  `mapstructure:"api_key"`
	BaseURL       string  `mapstructure:"base_url"`
	RatePerSecond float64 `mapstructure:"rate_per_second"` // 0 disables pacing
	Burst         int     `mapstructure:"burst"`
}

// LimitsConfig holds the step ceilings.
type LimitsConfig struct {
	AgentSteps int `mapstructure:"agent_steps"`
	TurnSteps  int `mapstructure:"turn_steps"`
}

// StoreConfig points at the ticket and account database.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`
	Seed   bool   `mapstructure:"seed"`
}

// KnowledgeConfig selects the search scorer.
type KnowledgeConfig struct {
	Embeddings     bool          `mapstructure:"embeddings"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// CheckpointConfig selects where threads live between turns.
type CheckpointConfig struct {
	Backend   string        `mapstructure:"backend"` // memory or redis
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Backend string `mapstructure:"backend"`
}

// MetricsConfig holds the Prometheus listener address; empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// PromptsConfig overrides agent prompts. Empty values keep the defaults.
type PromptsConfig struct {
	Classifier        string `mapstructure:"classifier"`
	ClassifierExtract string `mapstructure:"classifier_extract"`
	Retriever         string `mapstructure:"retriever"`
	RetrieverExtract  string `mapstructure:"retriever_extract"`
	Resolver          string `mapstructure:"resolver"`
	Escalation        string `mapstructure:"escalation"`
}

// Logging converts the log section into a logging.Config.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format, Backend: c.Log.Backend}
}

// Load reads configuration. Precedence (highest to lowest):
//  1. SUPPORT_* environment variables (plus OPENAI_API_KEY / ANTHROPIC_API_KEY)
//  2. the YAML file at path, or ./support.yaml when path is empty
//  3. built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("support")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", "openai")
	v.SetDefault("model.name", "") // provider default
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.rate_per_second", 0.0)
	v.SetDefault("model.burst", 1)

	v.SetDefault("limits.agent_steps", 15)
	v.SetDefault("limits.turn_steps", 60)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "support.db")
	v.SetDefault("store.seed", true)

	v.SetDefault("knowledge.embeddings", false)
	v.SetDefault("knowledge.embedding_model", "text-embedding-3-small")
	v.SetDefault("knowledge.cache_ttl", 30*24*time.Hour)

	v.SetDefault("checkpoint.backend", "memory")
	v.SetDefault("checkpoint.redis_addr", "localhost:6379")
	v.SetDefault("checkpoint.ttl", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.backend", "slog")

	v.SetDefault("metrics.addr", "")

	for _, k := range []string{"classifier", "classifier_extract", "retriever", "retriever_extract", "resolver", "escalation"} {
		v.SetDefault("prompts."+k, "")
	}
}

// Validate rejects unusable settings.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("config: unknown model.provider %q", c.Model.Provider)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Checkpoint.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown checkpoint.backend %q", c.Checkpoint.Backend)
	}
	if c.Limits.AgentSteps <= 0 || c.Limits.TurnSteps <= 0 {
		return fmt.Errorf("config: step limits must be positive (agent_steps=%d, turn_steps=%d)",
			c.Limits.AgentSteps, c.Limits.TurnSteps)
	}
	if c.Model.RatePerSecond < 0 {
		return fmt.Errorf("config: model.rate_per_second must not be negative")
	}
	return nil
}
