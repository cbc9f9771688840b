// Package openai provides the AI responder used by the audit engine,
// with Azure OpenAI as primary provider and the OpenAI platform (or any
// OpenAI-compatible endpoint) as fallback.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"mailaudit/internal/config"
)

// ErrEmptyResponse is returned when the provider answers without any choice
var ErrEmptyResponse = errors.New("AI response contained no choices")

// Client sends audit prompts to a chat completion model
type Client struct {
	primary       *openai.Client
	fallback      *openai.Client
	primaryModel  string
	fallbackModel string
	providerName  string
	timeout       time.Duration
	maxTokens     int
	logger        zerolog.Logger
}

// NewClient creates a responder with Azure as primary and OpenAI as fallback
func NewClient(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	client := &Client{
		timeout:   time.Duration(cfg.OpenAITimeout) * time.Second,
		maxTokens: cfg.OpenAIMaxTokens,
		logger:    logger.With().Str("component", "openai").Logger(),
	}

	// Try Azure OpenAI first (primary)
	if cfg.UseAzureOpenAI() {
		azureConfig := openai.DefaultAzureConfig(cfg.AzureOpenAIKey, cfg.AzureOpenAIEndpoint)
		client.primary = openai.NewClientWithConfig(azureConfig)
		client.primaryModel = cfg.AzureOpenAIGPTDeployment
		client.providerName = "Azure OpenAI"

		client.logger.Info().Str("endpoint", cfg.AzureOpenAIEndpoint).Msg("Primary provider: Azure OpenAI")
	}

	// Setup OpenAI as fallback (or primary if Azure not configured)
	if cfg.HasOpenAIFallback() {
		platformConfig := openai.DefaultConfig(cfg.OpenAIKey)
		if cfg.OpenAIBaseURL != "" {
			platformConfig.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
		}
		platform := openai.NewClientWithConfig(platformConfig)

		if client.primary == nil {
			client.primary = platform
			client.primaryModel = cfg.OpenAIModel
			client.providerName = "OpenAI"

			client.logger.Info().Str("model", cfg.OpenAIModel).Msg("Primary provider: OpenAI (Azure not configured)")
		} else {
			client.fallback = platform
			client.fallbackModel = cfg.OpenAIModel

			client.logger.Info().Str("model", cfg.OpenAIModel).Msg("Fallback provider: OpenAI")
		}
	}

	if client.primary == nil {
		return nil, fmt.Errorf("no OpenAI provider configured: set AZURE_OPENAI_ENDPOINT + AZURE_OPENAI_KEY, OPENAI_API_KEY or OPENAI_BASE_URL")
	}

	return client, nil
}

// Send submits a single-turn prompt and returns the trimmed text of the first choice.
// Each call is bounded by the configured timeout.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.primaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: c.maxTokens,
	}

	resp, err := c.primary.CreateChatCompletion(ctx, req)
	if err != nil && c.fallback != nil {
		c.logger.Warn().Err(err).Msg("Primary chat failed, trying fallback")
		req.Model = c.fallbackModel
		resp, err = c.fallback.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("AI call failed: both providers failed: %w", err)
		}
		c.logger.Info().Msg("Fallback chat succeeded")
	} else if err != nil {
		return "", fmt.Errorf("AI call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ProviderName returns the current primary provider name
func (c *Client) ProviderName() string {
	return c.providerName
}

// Model returns the model or deployment name used by the primary provider
func (c *Client) Model() string {
	return c.primaryModel
}
