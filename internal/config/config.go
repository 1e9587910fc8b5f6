package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Dedupe    DedupeConfig    `yaml:"dedupe" mapstructure:"dedupe"`
	Zones     ZonesConfig     `yaml:"zones" mapstructure:"zones"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlacesConfig holds the Places API settings for the raw candidate source.
type PlacesConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimitRPS  float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	MaxPerRequest int     `yaml:"max_per_request" mapstructure:"max_per_request"`
}

// JinaConfig holds Jina AI Reader/Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (heavy rendering fallback).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SearchConfig configures the search coordinator.
type SearchConfig struct {
	MaxResults        int     `yaml:"max_results" mapstructure:"max_results"`
	MinRelevance      int     `yaml:"min_relevance" mapstructure:"min_relevance"`
	SubAreaMarginPct  int     `yaml:"sub_area_margin_pct" mapstructure:"sub_area_margin_pct"`
	DelayMinMs        int     `yaml:"delay_min_ms" mapstructure:"delay_min_ms"`
	DelayMaxMs        int     `yaml:"delay_max_ms" mapstructure:"delay_max_ms"`
	EnrichConcurrency int     `yaml:"enrich_concurrency" mapstructure:"enrich_concurrency"`
	MinRating         float64 `yaml:"min_rating" mapstructure:"min_rating"`
	Country           string  `yaml:"country" mapstructure:"country"`
}

// EnrichConfig configures the enrichment orchestrator.
type EnrichConfig struct {
	BatchBudgetMs   int `yaml:"batch_budget_ms" mapstructure:"batch_budget_ms"`
	SingleBudgetMs  int `yaml:"single_budget_ms" mapstructure:"single_budget_ms"`
	VerifyTimeoutMs int `yaml:"verify_timeout_ms" mapstructure:"verify_timeout_ms"`
	MaxContactPages int `yaml:"max_contact_pages" mapstructure:"max_contact_pages"`
}

// DedupeConfig configures the fuzzy duplicate detector.
type DedupeConfig struct {
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
}

// ZonesConfig configures the zone table and adjacency graph.
type ZonesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// ScrapeConfig configures the fallback scrape chain.
type ScrapeConfig struct {
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries       int      `yaml:"retries" mapstructure:"retries"`
	ExcludePaths  []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	MaxConcurrent int      `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospector.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.rate_limit_rps", 10)
	v.SetDefault("places.max_per_request", 20)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("search.max_results", 40)
	v.SetDefault("search.min_relevance", 20)
	v.SetDefault("search.sub_area_margin_pct", 20)
	v.SetDefault("search.delay_min_ms", 1500)
	v.SetDefault("search.delay_max_ms", 3500)
	v.SetDefault("search.enrich_concurrency", 5)
	v.SetDefault("search.country", "AR")
	v.SetDefault("enrich.batch_budget_ms", 12000)
	v.SetDefault("enrich.single_budget_ms", 45000)
	v.SetDefault("enrich.verify_timeout_ms", 5000)
	v.SetDefault("enrich.max_contact_pages", 6)
	v.SetDefault("dedupe.threshold", 85)
	v.SetDefault("scrape.timeout_secs", 15)
	v.SetDefault("scrape.retries", 1)
	v.SetDefault("scrape.max_concurrent", 4)
	v.SetDefault("scrape.exclude_paths", []string{"/blog/*", "/news/*", "/carrito/*", "/cart/*"})

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
