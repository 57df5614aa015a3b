// Package config loads the engine configuration from config.yaml and
// CONTACT_* environment overrides, and owns global logger setup.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/contact-discovery/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	Hunter     HunterConfig     `yaml:"hunter" mapstructure:"hunter"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Billing    BillingConfig    `yaml:"billing" mapstructure:"billing"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool,omitempty" mapstructure:"pool"`
}

// ApolloConfig holds Apollo API settings.
type ApolloConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// HunterConfig holds Hunter.io API settings.
type HunterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds the enrichment research model settings.
type PerplexityConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Model     string  `yaml:"model" mapstructure:"model"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AnthropicConfig holds the name-scoring model settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BillingConfig points at the credit-ledger collaborator.
type BillingConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Key        string `yaml:"key" mapstructure:"key"`
	SearchCost int    `yaml:"search_cost" mapstructure:"search_cost"`
}

// CrawlConfig bounds the comprehensive website search.
type CrawlConfig struct {
	MaxPages    int `yaml:"max_pages" mapstructure:"max_pages"`
	MaxDepth    int `yaml:"max_depth" mapstructure:"max_depth"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig configures the discovery waterfall.
type SearchConfig struct {
	ProviderTimeoutSecs int    `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
	ApproachesPath      string `yaml:"approaches_path" mapstructure:"approaches_path"`
	Approach            string `yaml:"approach" mapstructure:"approach"`
}

// ProviderTimeout returns the per-provider timeout as a duration.
func (s SearchConfig) ProviderTimeout() time.Duration {
	return time.Duration(s.ProviderTimeoutSecs) * time.Second
}

// ExtractConfig configures contact mining from analysis text.
type ExtractConfig struct {
	MinProbability int `yaml:"min_probability" mapstructure:"min_probability"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONTACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("apollo.base_url", "https://api.apollo.io/api/v1")
	v.SetDefault("apollo.rate_limit", 2.0)
	v.SetDefault("hunter.base_url", "https://api.hunter.io/v2")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.rate_limit", 1.0)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("billing.search_cost", 1)
	v.SetDefault("crawl.max_pages", 25)
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("search.provider_timeout_secs", 30)
	v.SetDefault("search.approach", "default")
	v.SetDefault("extract.min_probability", 40)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
