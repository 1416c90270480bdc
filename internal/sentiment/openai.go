package sentiment

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/seligo/sentiment-pulse/internal/errdefs"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	// Rate-limited requests are retried with exponential backoff.
	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 30 * time.Second
)

// LLMOptions configures the OpenAI-backed completer. APIURL may point at
// any OpenAI-compatible endpoint.
type LLMOptions struct {
	APIKey      string
	APIURL      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OpenAICompleter issues chat completions through the official client.
type OpenAICompleter struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
	retryBase   time.Duration
}

// NewOpenAICompleter creates a completer for the configured provider.
func NewOpenAICompleter(opts LLMOptions) (*OpenAICompleter, error) {
	if opts.APIKey == "" {
		return nil, errdefs.New(errdefs.Validation, "LLM API key is required")
	}

	// SDK-internal retries are disabled; backoff is handled in Complete.
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.APIURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.APIURL))
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OpenAICompleter{
		client:      openai.NewClient(clientOpts...),
		model:       model,
		maxTokens:   int64(opts.MaxTokens),
		temperature: opts.Temperature,
		timeout:     timeout,
		retryBase:   baseBackoff,
	}, nil
}

// Complete sends the prompt as a single user message and returns the
// assistant reply. Rate-limit responses are retried with exponential
// backoff before giving up.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * c.retryBase
			if wait > maxBackoff {
				wait = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", errdefs.Wrap(ctx.Err(), errdefs.Analysis, "completion canceled")
			case <-time.After(wait):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimited(err) {
				continue
			}
			return "", errdefs.Wrap(err, errdefs.Analysis, "chat completion failed")
		}
		if len(completion.Choices) == 0 {
			return "", errdefs.New(errdefs.Analysis, "no completion choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	}

	return "", errdefs.Wrap(lastErr, errdefs.Analysis, "rate limited after retries")
}

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

var _ Completer = (*OpenAICompleter)(nil)
