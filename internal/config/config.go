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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gateway    GatewayConfig    `yaml:"gateway" mapstructure:"gateway"`
	Keywords   KeywordConfig    `yaml:"keywords" mapstructure:"keywords"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Writer     WriterConfig     `yaml:"writer" mapstructure:"writer"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings. The three models back the
// fast/balanced/deep gateway tiers.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	FastModel     string `yaml:"fast_model" mapstructure:"fast_model"`
	BalancedModel string `yaml:"balanced_model" mapstructure:"balanced_model"`
	DeepModel     string `yaml:"deep_model" mapstructure:"deep_model"`
}

// GatewayConfig configures the LLM gateway's self-protection.
type GatewayConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	BreakerThreshold  int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownMS int     `yaml:"breaker_cooldown_ms" mapstructure:"breaker_cooldown_ms"`
}

// KeywordConfig bounds the dynamic keyword cap: cap = clamp(referenceLength /
// CharDivisor, Min, Max).
type KeywordConfig struct {
	CharDivisor int `yaml:"char_divisor" mapstructure:"char_divisor"`
	Min         int `yaml:"min" mapstructure:"min"`
	Max         int `yaml:"max" mapstructure:"max"`
}

// AnalysisConfig configures the analysis pipeline.
type AnalysisConfig struct {
	// Stagger offsets (ms) for the fanned-out tasks. The product task always
	// runs first and is awaited alone before the fan-out begins.
	StructureOffsetMS int `yaml:"structure_offset_ms" mapstructure:"structure_offset_ms"`
	VisualOffsetMS    int `yaml:"visual_offset_ms" mapstructure:"visual_offset_ms"`
	RegionalOffsetMS  int `yaml:"regional_offset_ms" mapstructure:"regional_offset_ms"`
	KeywordOffsetMS   int `yaml:"keyword_offset_ms" mapstructure:"keyword_offset_ms"`
	PostProductWaitMS int `yaml:"post_product_wait_ms" mapstructure:"post_product_wait_ms"`
	MaxImages         int `yaml:"max_images" mapstructure:"max_images"`
}

// WriterConfig configures section generation.
type WriterConfig struct {
	SemanticKeywordLimit int `yaml:"semantic_keyword_limit" mapstructure:"semantic_keyword_limit"`
	FilterFastPathLimit  int `yaml:"filter_fast_path_limit" mapstructure:"filter_fast_path_limit"`
	KnowledgeCharBudget  int `yaml:"knowledge_char_budget" mapstructure:"knowledge_char_budget"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("ARTICLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "article.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.fast_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.balanced_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.deep_model", "claude-opus-4-6")
	v.SetDefault("gateway.max_attempts", 3)
	v.SetDefault("gateway.requests_per_second", 5.0)
	v.SetDefault("gateway.burst", 5)
	v.SetDefault("gateway.breaker_threshold", 5)
	v.SetDefault("gateway.breaker_cooldown_ms", 30000)
	v.SetDefault("keywords.char_divisor", 200)
	v.SetDefault("keywords.min", 10)
	v.SetDefault("keywords.max", 30)
	v.SetDefault("analysis.structure_offset_ms", 0)
	v.SetDefault("analysis.visual_offset_ms", 1000)
	v.SetDefault("analysis.regional_offset_ms", 2000)
	v.SetDefault("analysis.keyword_offset_ms", 3000)
	v.SetDefault("analysis.post_product_wait_ms", 1000)
	v.SetDefault("analysis.max_images", 5)
	v.SetDefault("writer.semantic_keyword_limit", 15)
	v.SetDefault("writer.filter_fast_path_limit", 5)
	v.SetDefault("writer.knowledge_char_budget", 30000)

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
