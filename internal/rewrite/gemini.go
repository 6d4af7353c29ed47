package rewrite

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider rewrites through the Gemini API. The client is created lazily on first use.
type GeminiProvider struct {
	apiKey      string
	model       string
	temperature float32
	clientOpts  []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. Extra client options are passed to
// genai.NewClient after the API key.
func NewGeminiProvider(apiKey, model string, temperature float32, opts ...option.ClientOption) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model, temperature: temperature, clientOpts: opts}
}

// Name returns the provider name.
func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.clientOpts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

// Rewrite generates the rewrite with the system instruction set on the model.
func (g *GeminiProvider) Rewrite(ctx context.Context, req Request) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	user, err := BuildUserMessage(req)
	if err != nil {
		return "", fmt.Errorf("marshal user message: %w", err)
	}

	model := client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemInstruction)}}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp), nil
}

// Close releases the underlying client.
func (g *GeminiProvider) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
