package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"updater/internal/logger"
)

// DefaultBingURL is the Bing web search endpoint.
const DefaultBingURL = "https://www.bing.com/search"

// BingProvider scrapes Bing result headings.
type BingProvider struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

// NewBingProvider creates a new Bing search provider
func NewBingProvider(endpoint string, client *http.Client) *BingProvider {
	if endpoint == "" {
		endpoint = DefaultBingURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &BingProvider{
		endpoint:  endpoint,
		client:    client,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// GetName returns the name of this provider
func (b *BingProvider) GetName() string {
	return "Bing"
}

// Search performs a search using Bing and returns results
func (b *BingProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", "20")
	if config.Language != "" {
		params.Set("setlang", config.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Bing results: %w", err)
	}

	var links []link
	doc.Find("li.b_algo h2 a, h2 a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		links = append(links, link{
			href:    strings.TrimSpace(href),
			title:   normalizeText(a.Text()),
			snippet: normalizeText(a.Closest("li.b_algo").Find(".b_caption p").First().Text()),
		})
	})
	results := collectResults(links, b.GetName(), config)

	logger.Info("Bing search completed", "query", query, "results_found", len(results))
	return results, nil
}
