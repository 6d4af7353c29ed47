package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"updater/internal/logger"
)

// DefaultGoogleCSEURL is the Custom Search JSON API endpoint.
const DefaultGoogleCSEURL = "https://www.googleapis.com/customsearch/v1"

// GoogleProvider implements Provider using Google Custom Search API
type GoogleProvider struct {
	apiKey   string
	searchID string
	endpoint string
	client   *http.Client
}

// NewGoogleProvider creates a new Google Custom Search provider
func NewGoogleProvider(apiKey, searchID string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:   apiKey,
		searchID: searchID,
		endpoint: DefaultGoogleCSEURL,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// WithEndpoint points the provider at a different API base, used by tests.
func (g *GoogleProvider) WithEndpoint(endpoint string) *GoogleProvider {
	g.endpoint = endpoint
	return g
}

// GetName returns the name of this provider
func (g *GoogleProvider) GetName() string {
	return "Google Custom Search"
}

// Search performs a search using Google Custom Search API
func (g *GoogleProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.searchID)
	params.Set("q", query)
	num := 10 // Google CSE allows max 10 results per request
	if config.MaxResults > 0 {
		num = min(config.MaxResults, 10)
	}
	params.Set("num", strconv.Itoa(num))
	if config.Language != "" {
		params.Set("lr", "lang_"+config.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google CSE request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Google CSE request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google CSE request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Google CSE response: %w", err)
	}

	if apiResponse.Error.Code != 0 {
		return nil, fmt.Errorf("google CSE API error (%d): %s", apiResponse.Error.Code, apiResponse.Error.Message)
	}

	links := make([]link, 0, len(apiResponse.Items))
	for _, item := range apiResponse.Items {
		links = append(links, link{href: item.Link, title: item.Title, snippet: item.Snippet})
	}
	results := collectResults(links, g.GetName(), config)

	logger.Info("Google Custom Search completed", "query", query, "results_found", len(results))

	return results, nil
}
