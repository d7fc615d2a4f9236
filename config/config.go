package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	WebPort           int           `mapstructure:"WEB_PORT"`
	CatalogPath       string        `mapstructure:"CATALOG_PATH"`
	QuestionSetsPath  string        `mapstructure:"QUESTION_SETS_PATH"`
	SessionStore      string        `mapstructure:"SESSION_STORE"`
	RedisAddr         string        `mapstructure:"REDIS_ADDR"`
	RedisPassword     string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int           `mapstructure:"REDIS_DB"`
	PostgresDSN       string        `mapstructure:"POSTGRES_DSN"`
	SemanticMatcher   string        `mapstructure:"SEMANTIC_MATCHER"`
	MatcherLLMHost    string        `mapstructure:"MATCHER_LLM_HOST"`
	LLMRequestTimeout time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	MaxRetries        int           `mapstructure:"MAX_RETRIES"`
	RetryDelaySeconds time.Duration `mapstructure:"RETRY_DELAY_SECONDS"`

	// Matching thresholds. Empirically chosen; kept configurable on purpose.
	FuzzyMatchThreshold      float64 `mapstructure:"FUZZY_MATCH_THRESHOLD"`
	ResolveStrictThreshold   float64 `mapstructure:"RESOLVE_STRICT_THRESHOLD"`
	ResolveStrictFarBar      float64 `mapstructure:"RESOLVE_STRICT_FAR_BAR"`
	ResolveLooseThreshold    float64 `mapstructure:"RESOLVE_LOOSE_THRESHOLD"`
	ResolveLooseFarBar       float64 `mapstructure:"RESOLVE_LOOSE_FAR_BAR"`
	TextAnswerMinLength      int     `mapstructure:"TEXT_ANSWER_MIN_LENGTH"`
	ResolverCacheSize        int     `mapstructure:"RESOLVER_CACHE_SIZE"`
	MaxResolveAlternatives   int     `mapstructure:"MAX_RESOLVE_ALTERNATIVES"`

	CleanupEnabled      bool          `mapstructure:"CLEANUP_ENABLED"`
	CleanupInterval     time.Duration `mapstructure:"CLEANUP_INTERVAL"`
	SessionRetentionAge time.Duration `mapstructure:"SESSION_RETENTION_AGE"`

	RateLimitAnswersPerMin int `mapstructure:"RATE_LIMIT_ANSWERS_PER_MIN"`
	RateLimitBurstSize     int `mapstructure:"RATE_LIMIT_BURST_SIZE"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("../")      // For running from docker subdir
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("WEB_PORT", 8084)
	viper.SetDefault("CATALOG_PATH", "")
	viper.SetDefault("QUESTION_SETS_PATH", "")
	viper.SetDefault("SESSION_STORE", "memory")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("POSTGRES_DSN", "")
	viper.SetDefault("SEMANTIC_MATCHER", "rules")
	viper.SetDefault("MATCHER_LLM_HOST", "http://localhost:8080")
	viper.SetDefault("LLM_REQUEST_TIMEOUT", 15)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("RETRY_DELAY_SECONDS", 2)
	viper.SetDefault("FUZZY_MATCH_THRESHOLD", 0.70)
	viper.SetDefault("RESOLVE_STRICT_THRESHOLD", 0.80)
	viper.SetDefault("RESOLVE_STRICT_FAR_BAR", 0.85)
	viper.SetDefault("RESOLVE_LOOSE_THRESHOLD", 0.70)
	viper.SetDefault("RESOLVE_LOOSE_FAR_BAR", 0.75)
	viper.SetDefault("TEXT_ANSWER_MIN_LENGTH", 3)
	viper.SetDefault("RESOLVER_CACHE_SIZE", 256)
	viper.SetDefault("MAX_RESOLVE_ALTERNATIVES", 3)
	viper.SetDefault("CLEANUP_ENABLED", true)
	viper.SetDefault("CLEANUP_INTERVAL", 1)
	viper.SetDefault("SESSION_RETENTION_AGE", 24)
	viper.SetDefault("RATE_LIMIT_ANSWERS_PER_MIN", 30)
	viper.SetDefault("RATE_LIMIT_BURST_SIZE", 5)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// Convert seconds/hours to proper time.Duration
	config.LLMRequestTimeout = config.LLMRequestTimeout * time.Second
	config.RetryDelaySeconds = config.RetryDelaySeconds * time.Second
	config.CleanupInterval = config.CleanupInterval * time.Hour
	config.SessionRetentionAge = config.SessionRetentionAge * time.Hour

	return &config
}
