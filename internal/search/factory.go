package search

import (
	"fmt"
	"net/http"
	"time"

	"updater/internal/classify"
	"updater/internal/config"
)

// ProviderFactory creates search providers based on type and configuration
type ProviderFactory struct {
	client     *http.Client
	classifier *classify.Classifier
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(client *http.Client, classifier *classify.Classifier) *ProviderFactory {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if classifier == nil {
		classifier = classify.New()
	}
	return &ProviderFactory{client: client, classifier: classifier}
}

// CreateProvider creates a search provider of the specified type
func (f *ProviderFactory) CreateProvider(providerType ProviderType, settings map[string]string) (Provider, error) {
	switch providerType {
	case ProviderTypeSearx:
		return NewSearxProvider(settings["url"], f.client, f.classifier), nil
	case ProviderTypeDuckDuckGo:
		return NewDuckDuckGoProvider(settings["url"], f.client), nil
	case ProviderTypeBing:
		return NewBingProvider(settings["url"], f.client), nil
	case ProviderTypeGoogle:
		apiKey, exists := settings["api_key"]
		if !exists || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		searchID, exists := settings["search_id"]
		if !exists || searchID == "" {
			return nil, ErrMissingSearchID
		}
		return NewGoogleProvider(apiKey, searchID), nil
	case ProviderTypeSeeds:
		library := DefaultSeeds
		if path := settings["file"]; path != "" {
			loaded, err := LoadSeeds(path)
			if err != nil {
				return nil, err
			}
			library = loaded
		}
		return NewSeedProvider(library), nil
	case ProviderTypeMock:
		return NewMockProvider("Mock"), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// BuildCascade creates the configured providers in priority order: SearxNG, DuckDuckGo,
// Bing, Google Custom Search when credentials are present, then topic seeds.
func (f *ProviderFactory) BuildCascade(cfg *config.Config) ([]Provider, error) {
	search := cfg.Search
	type entry struct {
		providerType ProviderType
		settings     map[string]string
		enabled      bool
	}
	entries := []entry{
		{ProviderTypeSearx, map[string]string{"url": search.Providers.Searx.URL}, search.Providers.Searx.URL != ""},
		{ProviderTypeDuckDuckGo, map[string]string{"url": search.Providers.DuckDuckGo.URL}, search.Providers.DuckDuckGo.Enabled},
		{ProviderTypeBing, map[string]string{"url": search.Providers.Bing.URL}, search.Providers.Bing.Enabled},
		{ProviderTypeGoogle, map[string]string{
			"api_key":   search.Providers.Google.APIKey,
			"search_id": search.Providers.Google.SearchID,
		}, cfg.HasValidGoogleSearch()},
		{ProviderTypeSeeds, map[string]string{"file": search.SeedsFile}, true},
	}

	var providers []Provider
	for _, e := range entries {
		if !e.enabled {
			continue
		}
		p, err := f.CreateProvider(e.providerType, e.settings)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", e.providerType, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
