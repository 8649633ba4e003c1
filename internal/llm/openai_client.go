// ABOUTME: OpenAI-compatible completion client implementing Capability
// ABOUTME: Classifies API failures and retries rate limits with exponential backoff
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harper/worldcafe/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultRequestTimeout bounds a single HTTP attempt
	DefaultRequestTimeout = 60 * time.Second
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	Temperature    float32
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		RequestTimeout: DefaultRequestTimeout,
		Temperature:    0.2,
	}
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	maxRetries     int
	retryDelay     time.Duration
	requestTimeout time.Duration
	temperature    float32
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	oc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oc.BaseURL = config.BaseURL
	}

	model := config.ChatModel
	if model == "" {
		model = DefaultChatModel
	}
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      model,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
		requestTimeout: timeout,
		temperature:    config.Temperature,
	}, nil
}

// Model returns the model used when a request names no capability
func (c *OpenAIClient) Model() string {
	return c.chatModel
}

// Submit sends one prompt and returns the first choice's content.
// Rate limits and server errors are retried; size limits fail immediately.
func (c *OpenAIClient) Submit(ctx context.Context, req Request) (string, error) {
	model := req.CapabilityID
	if model == "" {
		model = c.chatModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   req.MaxResponseTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr *CapabilityError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.SleepContext(ctx, util.CalculateBackoff(c.retryDelay, attempt)); err != nil {
				return "", &CapabilityError{Kind: KindGeneric, CapabilityID: model, Err: err}
			}
		}

		content, err := c.complete(ctx, chatReq)
		if err == nil {
			return content, nil
		}

		lastErr = classify(model, err)
		if !retryable(lastErr) || ctx.Err() != nil {
			return "", lastErr
		}
	}

	lastErr.Err = fmt.Errorf("after %d attempts: %w", c.maxRetries+1, lastErr.Err)
	return "", lastErr
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(attemptCtx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps go-openai errors onto the capability error taxonomy
func classify(model string, err error) *CapabilityError {
	ce := &CapabilityError{Kind: KindGeneric, CapabilityID: model, Err: err}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		ce.StatusCode = apiErr.HTTPStatusCode
		code := strings.ToLower(fmt.Sprint(apiErr.Code))
		msg := strings.ToLower(apiErr.Message)
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests || strings.Contains(code, "rate_limit"):
			ce.Kind = KindRateLimit
		case apiErr.HTTPStatusCode == http.StatusRequestEntityTooLarge,
			code == "context_length_exceeded",
			strings.Contains(msg, "maximum context length"):
			ce.Kind = KindSizeLimit
		}
		return ce
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		ce.StatusCode = reqErr.HTTPStatusCode
		switch reqErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			ce.Kind = KindRateLimit
		case http.StatusRequestEntityTooLarge:
			ce.Kind = KindSizeLimit
		}
	}
	return ce
}

func retryable(ce *CapabilityError) bool {
	switch {
	case ce.Kind == KindRateLimit:
		return true
	case ce.Kind == KindSizeLimit:
		return false
	case ce.StatusCode >= 500:
		return true
	case ce.StatusCode == 0:
		// transport failure or per-attempt timeout
		return !errors.Is(ce.Err, context.Canceled)
	}
	return false
}
