package config

import (
	"strings"
	"time"
)

// LLMConfig holds everything the generation gateway needs.
type LLMConfig struct {
	APIKey  string `mapstructure:"OPENAI_API_KEY" json:"-"` // Never serialize
	BaseURL string `mapstructure:"OPENAI_BASE_URL" json:"baseUrl"`
	Model   string `mapstructure:"OPENAI_MODEL" json:"model"`

	MaxCompletionTokens int     `mapstructure:"LLM_MAX_COMPLETION_TOKENS" json:"maxCompletionTokens"`
	Temperature         float64 `mapstructure:"LLM_TEMPERATURE" json:"temperature"`

	// MaxAttempts bounds the retry loop, first attempt included.
	MaxAttempts    int           `mapstructure:"LLM_MAX_ATTEMPTS" json:"maxAttempts"`
	InitialBackoff time.Duration `mapstructure:"LLM_INITIAL_BACKOFF" json:"initialBackoff"`
	MaxBackoff     time.Duration `mapstructure:"LLM_MAX_BACKOFF" json:"maxBackoff"`

	// RequestTimeout covers the whole call including retries; HTTPTimeout covers one attempt.
	RequestTimeout time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT" json:"requestTimeout"`
	HTTPTimeout    time.Duration `mapstructure:"LLM_HTTP_TIMEOUT" json:"httpTimeout"`

	RequestsPerSecond float64 `mapstructure:"LLM_REQUESTS_PER_SECOND" json:"requestsPerSecond"`
	Burst             int     `mapstructure:"LLM_BURST" json:"burst"`

	ContextTokenBudget int    `mapstructure:"LLM_CONTEXT_TOKEN_BUDGET" json:"contextTokenBudget"`
	PromptVersion      string `mapstructure:"PROMPT_VERSION" json:"promptVersion"`
}

// DefaultLLMConfig returns the defaults used when nothing is configured.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:             "https://api.openai.com",
		Model:               "gpt-4o-mini",
		MaxCompletionTokens: 4000,
		Temperature:         0.7,
		MaxAttempts:         3,
		InitialBackoff:      time.Second,
		MaxBackoff:          10 * time.Second,
		RequestTimeout:      90 * time.Second,
		HTTPTimeout:         60 * time.Second,
		RequestsPerSecond:   2,
		Burst:               4,
		ContextTokenBudget:  6000,
		PromptVersion:       "v1",
	}
}

// IsEnabled returns true if the LLM API is configured
func (c LLMConfig) IsEnabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ChatCompletionsURL returns the full endpoint for chat completions
func (c LLMConfig) ChatCompletionsURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/v1/chat/completions"
}

// modelContextWindows lists known context windows in tokens.
var modelContextWindows = map[string]int{
	"gpt-4o":        128000,
	"gpt-4o-mini":   128000,
	"gpt-4-turbo":   128000,
	"gpt-4.1":       1000000,
	"gpt-4.1-mini":  1000000,
	"gpt-4":         8192,
	"gpt-3.5-turbo": 16385,
}

// EffectiveContextBudget clamps the configured budget to what the model can
// take after reserving room for the completion and the system prompt.
func (c LLMConfig) EffectiveContextBudget(systemPromptTokens int) int {
	budget := c.ContextTokenBudget
	window, ok := modelContextWindows[strings.ToLower(c.Model)]
	if !ok {
		return budget
	}
	room := window - c.MaxCompletionTokens - systemPromptTokens
	if room < budget {
		budget = room
	}
	if budget < 0 {
		budget = 0
	}
	return budget
}
