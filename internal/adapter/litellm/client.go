// Package litellm implements the completion provider against any
// OpenAI-compatible chat completions endpoint (OpenAI itself or a LiteLLM
// proxy) using the official openai-go client.
package litellm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Strob0t/agentbridge/internal/config"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/port/completion"
	"github.com/Strob0t/agentbridge/internal/resilience"
	"github.com/Strob0t/agentbridge/internal/secrets"
)

// MockResponse is returned when no completion API key is configured. It
// carries no list lines or section keywords so it scores near the floor.
const MockResponse = "Completion service is not configured for this deployment. " +
	"Set COMPLETION_API_KEY to receive generated guidance for this task."

// Secrets is the subset of the vault the client reads on every call.
type Secrets interface {
	Get(key string) string
	RedactString(s string) string
}

// Client is a completion.Provider backed by openai-go.
type Client struct {
	api     openai.Client
	secrets Secrets
	cfg     config.Completion
	breaker *resilience.Breaker
}

var _ completion.Provider = (*Client)(nil)

// NewClient creates a completion client. The API key is read from the
// vault per call so a SIGHUP reload takes effect without a restart.
func NewClient(cfg config.Completion, vault Secrets) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.Timeout = timeout
	return &Client{
		api: openai.NewClient(
			option.WithBaseURL(cfg.BaseURL),
			option.WithMaxRetries(0),
			option.WithRequestTimeout(timeout),
		),
		secrets: vault,
		cfg:     cfg,
	}
}

// SetBreaker attaches a circuit breaker to completion calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.secrets.Get(secrets.KeyCompletionAPIKey) != ""
}

// Complete sends the system and user prompts as a two-message exchange.
// Without an API key it returns MockResponse and never fails.
func (c *Client) Complete(ctx context.Context, system, user string) (completion.Result, error) {
	key := c.secrets.Get(secrets.KeyCompletionAPIKey)
	if key == "" {
		return completion.Result{Text: MockResponse, IsMock: true}, nil
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.cfg.Temperature),
		MaxTokens:   openai.Int(c.cfg.MaxTokens),
	}

	var text string
	call := func() error {
		resp, err := c.api.Chat.Completions.New(ctx, params, option.WithAPIKey(key))
		if err != nil {
			return c.upstreamError(err)
		}
		if len(resp.Choices) > 0 {
			text = resp.Choices[0].Message.Content
		}
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return completion.Result{}, &domain.UpstreamError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    err.Error(),
		}
	}
	if err != nil {
		return completion.Result{}, fmt.Errorf("chat completion: %w", err)
	}
	return completion.Result{Text: text}, nil
}

// upstreamError converts an openai-go error into a domain.UpstreamError.
// Transport failures without an HTTP response are reported as 502.
func (c *Client) upstreamError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &domain.UpstreamError{
			StatusCode: apiErr.StatusCode,
			Message:    c.secrets.RedactString(msg),
		}
	}
	return &domain.UpstreamError{
		StatusCode: http.StatusBadGateway,
		Message:    c.secrets.RedactString(err.Error()),
	}
}
