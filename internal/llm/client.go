// Package llm is the generation gateway: an OpenAI-compatible chat
// completions client with rate limiting, bounded retries and token metering.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"healthpulse/internal/config"
	"healthpulse/internal/logger"
	"healthpulse/internal/metrics"
	"healthpulse/internal/tokenizer"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// Request is one structured-output generation call.
type Request struct {
	SystemPrompt        string
	UserPrompt          string
	Model               string
	MaxCompletionTokens int
	Temperature         float64
	JSONMode            bool
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is the content of a successful generation.
type Result struct {
	Content  string
	Usage    Usage
	Model    string
	Latency  time.Duration
	Attempts int
}

// Client owns the HTTP connection pool, the upstream rate limiter and the
// token counter. Build it once and Close it on shutdown.
type Client struct {
	cfg     config.LLMConfig
	http    *http.Client
	limiter *rate.Limiter
	counter *tokenizer.Counter
	log     *logger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCounter replaces the default tiktoken-backed counter.
func WithCounter(counter *tokenizer.Counter) Option {
	return func(c *Client) { c.counter = counter }
}

// NewClient builds a gateway handle. It refuses to build without an API key.
func NewClient(cfg config.LLMConfig, log *logger.Logger, opts ...Option) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: rate.NewLimiter(limit, burst),
		log:     log.With("component", "llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.counter == nil {
		c.counter = tokenizer.NewCounter(log)
	}
	return c, nil
}

// Counter exposes the token counter owned by the client.
func (c *Client) Counter() *tokenizer.Counter {
	return c.counter
}

// Model is the default model id.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Close releases idle connections and cached encodings.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
	c.counter.Close()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         float64         `json:"temperature"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate runs the request with bounded retries. Auth, content-length and
// other client errors fail immediately; rate limits, server errors, refusals,
// empty content and transport errors are retried until attempts run out.
// The whole call is bounded by LLM_REQUEST_TIMEOUT.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	if req.MaxCompletionTokens == 0 {
		req.MaxCompletionTokens = c.cfg.MaxCompletionTokens
	}

	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	body, err := json.Marshal(c.buildBody(req))
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: "encode request", Err: err}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.InitialBackoff
	if c.cfg.MaxBackoff > 0 {
		expo.MaxInterval = c.cfg.MaxBackoff
	}

	start := time.Now()
	attempts := 0
	var lastErr *Error

	op := func() (*Result, error) {
		attempts++
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(&Error{Kind: KindTimeout, Message: "waiting for rate limiter", Err: err})
		}

		res, err := c.attempt(ctx, req.Model, body)
		if err == nil {
			metrics.RecordLLMAttempt(req.Model, "success")
			return res, nil
		}

		var gwErr *Error
		if !errors.As(err, &gwErr) {
			gwErr = &Error{Kind: KindTransport, Err: err}
		}
		if ctx.Err() != nil {
			gwErr = &Error{Kind: KindTimeout, Message: "request deadline exceeded", Err: ctx.Err()}
		}
		lastErr = gwErr
		metrics.RecordLLMAttempt(req.Model, string(gwErr.Kind))

		if !gwErr.Retryable() {
			return nil, backoff.Permanent(gwErr)
		}
		if gwErr.RetryAfter > 0 {
			return nil, backoff.RetryAfter(int(gwErr.RetryAfter / time.Second))
		}
		return nil, gwErr
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warn("LLM request retrying",
				"model", req.Model,
				"attempt", attempts,
				"max_attempts", c.cfg.MaxAttempts,
				"sleep", wait.String(),
				"error", err.Error(),
			)
		}),
	)
	if err != nil {
		if lastErr == nil || (ctx.Err() != nil && lastErr.Kind != KindTimeout) {
			lastErr = &Error{Kind: KindTimeout, Message: "request deadline exceeded", Err: err}
		}
		c.log.Error("LLM request failed", "model", req.Model, "attempts", attempts, "kind", lastErr.Kind, "error", lastErr.Error())
		return nil, lastErr
	}

	res.Latency = time.Since(start)
	res.Attempts = attempts
	metrics.RecordLLMSuccess(res.Model, res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Latency)
	c.log.Debug("LLM request completed",
		"model", res.Model,
		"attempts", attempts,
		"prompt_tokens", res.Usage.PromptTokens,
		"completion_tokens", res.Usage.CompletionTokens,
		"latency_ms", res.Latency.Milliseconds(),
	)
	return res, nil
}

func (c *Client) buildBody(req Request) chatRequest {
	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxCompletionTokens: req.MaxCompletionTokens,
		Temperature:         req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return body
}

func (c *Client) attempt(ctx context.Context, model string, body []byte) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ChatCompletionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Message: "read body", Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{Kind: KindEmpty, Message: "no choices returned"}
	}
	choice := parsed.Choices[0]
	if strings.TrimSpace(choice.Message.Refusal) != "" {
		return nil, &Error{Kind: KindRefused, Message: choice.Message.Refusal}
	}
	if choice.FinishReason == "length" {
		return nil, &Error{Kind: KindContentTooLong, Message: "completion truncated at token limit"}
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, &Error{Kind: KindEmpty, Message: "empty content"}
	}

	if parsed.Model == "" {
		parsed.Model = model
	}
	return &Result{
		Content: choice.Message.Content,
		Model:   parsed.Model,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

func classifyStatus(resp *http.Response, raw []byte) *Error {
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)
	msg := body.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	e := &Error{StatusCode: resp.StatusCode, Message: msg}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e.Kind = KindAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		e.Kind = KindContentTooLong
	case resp.StatusCode == http.StatusBadRequest && body.Error.Code == "context_length_exceeded":
		e.Kind = KindContentTooLong
	case resp.StatusCode >= 500:
		e.Kind = KindServerError
	default:
		e.Kind = KindBadRequest
	}
	return e
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
