package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/spreadinsight/newsbot/internal/ratelimit"
)

const Provider = "openai"

var errEmptyResponse = errors.New("no response from OpenAI")

// Client generates text through the chat completions API. It satisfies
// selector.Generator so it can stand in for Gemini.
type Client struct {
	client    *goopenai.Client
	model     string
	baseURL   string
	maxTokens int
	limiter   *ratelimit.Limiter
}

type Option func(*Client)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

func NewClient(apiKey, model string, opts ...Option) *Client {
	if model == "" {
		model = goopenai.GPT4oMini
	}
	c := &Client{
		model:     model,
		maxTokens: 2000,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	c.client = goopenai.NewClientWithConfig(cfg)
	return c
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Use(Provider); err != nil {
			return "", err
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxCompletionTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
