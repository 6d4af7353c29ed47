package rewrite

import (
	"time"

	"updater/internal/config"
)

// ProvidersFromConfig returns the LLM providers that have credentials, in priority order:
// Groq, OpenAI, Gemini.
func ProvidersFromConfig(ai config.AI) []Provider {
	timeout := config.Duration(ai.Timeout, 60*time.Second)

	var providers []Provider
	if config.HasKey(ai.Groq.APIKey) {
		providers = append(providers, NewGroqProvider(ai.Groq.APIKey, ai.Groq.Model, ai.Groq.BaseURL, ai.Temperature, timeout))
	}
	if config.HasKey(ai.OpenAI.APIKey) {
		providers = append(providers, NewOpenAIProvider(ai.OpenAI.APIKey, ai.OpenAI.Model, ai.OpenAI.BaseURL, ai.Temperature, timeout))
	}
	if config.HasKey(ai.Gemini.APIKey) {
		providers = append(providers, NewGeminiProvider(ai.Gemini.APIKey, ai.Gemini.Model, ai.Temperature))
	}
	return providers
}
