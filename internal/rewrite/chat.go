package rewrite

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default OpenAI-compatible endpoints.
const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"
)

// ChatConfig configures an OpenAI-compatible chat completions provider.
type ChatConfig struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// ChatProvider calls an OpenAI-compatible chat completions API.
type ChatProvider struct {
	name        string
	apiKey      string
	model       string
	temperature float32
	client      *openai.Client
}

// NewChatProvider builds a provider from configuration. Requests are sent once; the
// rewrite cascade moves on to the next provider instead of retrying.
func NewChatProvider(cfg ChatConfig) *ChatProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &ChatProvider{
		name:        cfg.Name,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      &client,
	}
}

// NewGroqProvider is the primary provider.
func NewGroqProvider(apiKey, model, baseURL string, temperature float32, timeout time.Duration) *ChatProvider {
	if baseURL == "" {
		baseURL = GroqBaseURL
	}
	return NewChatProvider(ChatConfig{Name: "groq", BaseURL: baseURL, APIKey: apiKey, Model: model, Temperature: temperature, Timeout: timeout})
}

// NewOpenAIProvider is the secondary provider.
func NewOpenAIProvider(apiKey, model, baseURL string, temperature float32, timeout time.Duration) *ChatProvider {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return NewChatProvider(ChatConfig{Name: "openai", BaseURL: baseURL, APIKey: apiKey, Model: model, Temperature: temperature, Timeout: timeout})
}

// Name returns the provider name.
func (c *ChatProvider) Name() string { return c.name }

// Rewrite sends the system instruction and the JSON user message and returns the first
// choice's content.
func (c *ChatProvider) Rewrite(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" || c.model == "" {
		return "", fmt.Errorf("%s client misconfigured", c.name)
	}

	user, err := BuildUserMessage(req)
	if err != nil {
		return "", fmt.Errorf("marshal user message: %w", err)
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemInstruction),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(float64(c.temperature)),
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", c.name, err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyOutput
	}
	return completion.Choices[0].Message.Content, nil
}
