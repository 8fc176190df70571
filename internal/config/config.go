package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogMode  string `mapstructure:"LOG_MODE"`
	MongoURI string `mapstructure:"MONGO_URI"`
	MongoDB  string `mapstructure:"MONGO_DB"`

	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	ReportQueueKey     string        `mapstructure:"REPORT_QUEUE_KEY"`
	AssessmentCacheTTL time.Duration `mapstructure:"ASSESSMENT_CACHE_TTL"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	CORSOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	LLM LLMConfig `mapstructure:",squash"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_MODE", "MONGO_URI", "MONGO_DB",
	"REDIS_ADDR", "REPORT_QUEUE_KEY", "ASSESSMENT_CACHE_TTL",
	"JWT_SECRET", "CORS_ALLOWED_ORIGINS",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"LLM_MAX_COMPLETION_TOKENS", "LLM_TEMPERATURE", "LLM_MAX_ATTEMPTS",
	"LLM_INITIAL_BACKOFF", "LLM_MAX_BACKOFF", "LLM_REQUEST_TIMEOUT", "LLM_HTTP_TIMEOUT",
	"LLM_REQUESTS_PER_SECOND", "LLM_BURST", "LLM_CONTEXT_TOKEN_BUDGET", "PROMPT_VERSION",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	llm := DefaultLLMConfig()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_MODE", "dev")
	v.SetDefault("MONGO_DB", "healthpulse")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REPORT_QUEUE_KEY", "healthpulse:reports")
	v.SetDefault("ASSESSMENT_CACHE_TTL", "1h")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("OPENAI_BASE_URL", llm.BaseURL)
	v.SetDefault("OPENAI_MODEL", llm.Model)
	v.SetDefault("LLM_MAX_COMPLETION_TOKENS", llm.MaxCompletionTokens)
	v.SetDefault("LLM_TEMPERATURE", llm.Temperature)
	v.SetDefault("LLM_MAX_ATTEMPTS", llm.MaxAttempts)
	v.SetDefault("LLM_INITIAL_BACKOFF", llm.InitialBackoff.String())
	v.SetDefault("LLM_MAX_BACKOFF", llm.MaxBackoff.String())
	v.SetDefault("LLM_REQUEST_TIMEOUT", llm.RequestTimeout.String())
	v.SetDefault("LLM_HTTP_TIMEOUT", llm.HTTPTimeout.String())
	v.SetDefault("LLM_REQUESTS_PER_SECOND", llm.RequestsPerSecond)
	v.SetDefault("LLM_BURST", llm.Burst)
	v.SetDefault("LLM_CONTEXT_TOKEN_BUDGET", llm.ContextTokenBudget)
	v.SetDefault("PROMPT_VERSION", llm.PromptVersion)

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.RedisAddr = strings.TrimPrefix(cfg.RedisAddr, "redis://")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("LLM_MAX_ATTEMPTS must be at least 1, got %d", c.LLM.MaxAttempts)
	}
	if c.LLM.ContextTokenBudget < 0 {
		return fmt.Errorf("LLM_CONTEXT_TOKEN_BUDGET must not be negative")
	}
	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("LLM_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// SigningSecret returns the JWT secret, falling back to a fixed value in development.
func (c *Config) SigningSecret() []byte {
	if c.JWTSecret == "" {
		return []byte("dev-secret-change-in-production")
	}
	return []byte(c.JWTSecret)
}
