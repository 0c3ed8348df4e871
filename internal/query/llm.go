package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

// LLM answers questions through an OpenAI-compatible chat completion
// endpoint, such as the one served by Ollama.
type LLM struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

type llmOptions struct {
	timeout    time.Duration
	limiter    *rate.Limiter
	maxRetries int
	httpClient *http.Client
}

// LLMOption customises an LLM.
type LLMOption func(*llmOptions)

// WithTimeout bounds each answer.
func WithTimeout(d time.Duration) LLMOption { return func(o *llmOptions) { o.timeout = d } }

// WithLimiter throttles outgoing requests.
func WithLimiter(l *rate.Limiter) LLMOption { return func(o *llmOptions) { o.limiter = l } }

// WithMaxRetries sets how often a failed request is retried.
func WithMaxRetries(n int) LLMOption { return func(o *llmOptions) { o.maxRetries = n } }

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) LLMOption { return func(o *llmOptions) { o.httpClient = c } }

// NewLLM creates an LLM answerer for the given endpoint and model.
func NewLLM(baseURL, apiKey, model string, logger *slog.Logger, opts ...LLMOption) *LLM {
	o := llmOptions{maxRetries: 2}
	for _, opt := range opts {
		opt(&o)
	}
	reqOpts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}
	c := openai.NewClient(reqOpts...)
	logger.Debug("llm configured", "base_url", baseURL, "model", model, "limiter", o.limiter != nil)
	return &LLM{client: &c, model: model, timeout: o.timeout, limiter: o.limiter, logger: logger}
}

// NewLimiter allows perMinute requests per minute with a burst of one.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Answer sends the question as a single user message and returns the reply.
func (l *LLM) Answer(ctx context.Context, question string) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	l.logger.DebugContext(ctx, "llm request", "model", l.model, "question_len", len(question))
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(question),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
