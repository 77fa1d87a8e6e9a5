package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

const (
	// ModelDefault is the model used for task generation and analysis
	ModelDefault = "claude-sonnet-4-5-20250929"
)

// GetDefaultModel returns the default model, checking PLANER_MODEL env var first
func GetDefaultModel() string {
	if model := os.Getenv("PLANER_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// Role identifies the author of a sampled message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to the generative service
type Message struct {
	Role    Role
	Content string
}

// SampleParams are the generation parameters for one call
type SampleParams struct {
	MaxTokens   int64
	Temperature float64
}

// Sampler is the generative-service boundary. It is non-deterministic and
// fallible; callers must tolerate empty, malformed, or erroring responses.
type Sampler interface {
	Sample(ctx context.Context, messages []Message, params SampleParams) (string, error)
}

// Client calls the Anthropic API with retry, timeout, and a concurrency cap
type Client struct {
	client *anthropic.Client
	model  string
	retry  RetryConfig
	sem    *semaphore.Weighted
}

// Compile-time check that Client implements Sampler
var _ Sampler = (*Client)(nil)

// Config holds client configuration
type Config struct {
	APIKey string      // if empty, reads from ANTHROPIC_API_KEY env var
	Model  string      // default: claude-sonnet-4-5-20250929
	Retry  RetryConfig // uses defaults if not specified
}

// NewClient creates a new generative-service client
func NewClient(cfg *Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	var sem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Client{
		client: &client,
		model:  model,
		retry:  retry,
		sem:    sem,
	}, nil
}

// Sample sends the messages to the model and returns the concatenated text
// content of the response.
func (c *Client) Sample(ctx context.Context, messages []Message, params SampleParams) (string, error) {
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	msgParams := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			msgParams = append(msgParams, anthropic.NewAssistantMessage(block))
		} else {
			msgParams = append(msgParams, anthropic.NewUserMessage(block))
		}
	}

	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, "sample", func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:       anthropic.Model(c.model),
			MaxTokens:   maxTokens,
			Temperature: anthropic.Float(params.Temperature),
			Messages:    msgParams,
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
