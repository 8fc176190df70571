package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresMongoURI(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when MONGO_URI is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MongoDB != "healthpulse" {
		t.Errorf("expected default db healthpulse, got %s", cfg.MongoDB)
	}
	if cfg.LLM.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.LLM.MaxAttempts)
	}
	if cfg.LLM.RequestTimeout != 90*time.Second {
		t.Errorf("expected 90s request timeout, got %s", cfg.LLM.RequestTimeout)
	}
	if cfg.AssessmentCacheTTL != time.Hour {
		t.Errorf("expected 1h cache ttl, got %s", cfg.AssessmentCacheTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_ADDR", "redis://cache:6379")
	t.Setenv("LLM_MAX_ATTEMPTS", "5")
	t.Setenv("LLM_INITIAL_BACKOFF", "250ms")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisAddr != "cache:6379" {
		t.Errorf("expected redis:// prefix stripped, got %s", cfg.RedisAddr)
	}
	if cfg.LLM.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.LLM.MaxAttempts)
	}
	if cfg.LLM.InitialBackoff != 250*time.Millisecond {
		t.Errorf("expected 250ms backoff, got %s", cfg.LLM.InitialBackoff)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected model override, got %s", cfg.LLM.Model)
	}
}

func TestValidate_ProductionNeedsSecret(t *testing.T) {
	c := &Config{MongoURI: "mongodb://x", Env: "production", LLM: DefaultLLMConfig()}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error without JWT_SECRET in production")
	}
	c.JWTSecret = "s3cret"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEffectiveContextBudget(t *testing.T) {
	c := DefaultLLMConfig()
	if got := c.EffectiveContextBudget(500); got != 6000 {
		t.Errorf("expected configured budget for large window, got %d", got)
	}

	c.Model = "gpt-4"
	c.MaxCompletionTokens = 4000
	if got := c.EffectiveContextBudget(1000); got != 3192 {
		t.Errorf("expected clamped budget 3192, got %d", got)
	}

	c.Model = "some-local-model"
	if got := c.EffectiveContextBudget(1000); got != 6000 {
		t.Errorf("expected configured budget for unknown model, got %d", got)
	}
}
