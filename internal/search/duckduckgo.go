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

// DefaultDuckDuckGoURL is the JavaScript-free DuckDuckGo endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider implements the Provider interface using DuckDuckGo
type DuckDuckGoProvider struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

// NewDuckDuckGoProvider creates a new DuckDuckGo search provider
func NewDuckDuckGoProvider(endpoint string, client *http.Client) *DuckDuckGoProvider {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &DuckDuckGoProvider{
		endpoint:  endpoint,
		client:    client,
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	}
}

// GetName returns the name of this provider
func (d *DuckDuckGoProvider) GetName() string {
	return "DuckDuckGo"
}

// Search performs a search using DuckDuckGo and returns results
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.buildSearchURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	bodyStr := string(body)
	logger.Debug("DuckDuckGo response received", "query", query, "response_length", len(bodyStr))

	results, err := d.parseSearchResults(bodyStr, config)
	if err != nil {
		return nil, err
	}
	// A CAPTCHA page has no result anchors; pages that merely mention the word still do.
	if len(results) == 0 && strings.Contains(strings.ToLower(bodyStr), "captcha") {
		logger.Debug("DuckDuckGo CAPTCHA detected", "query", query)
		return nil, ErrBlocked
	}

	logger.Info("DuckDuckGo search completed", "query", query, "results_found", len(results))

	return results, nil
}

// buildSearchURL constructs the DuckDuckGo search URL with parameters
func (d *DuckDuckGoProvider) buildSearchURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("b", "0")      // Start from first result
	params.Set("kl", "us-en") // Language/region
	return d.endpoint + "?" + params.Encode()
}

// parseSearchResults extracts search results from DuckDuckGo HTML response
func (d *DuckDuckGoProvider) parseSearchResults(html string, config Config) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DuckDuckGo results: %w", err)
	}

	var links []link
	doc.Find("a.result__a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		finalURL := d.extractFinalURL(href)
		if finalURL == "" {
			return
		}
		snippet := a.Closest(".result").Find(".result__snippet").First().Text()
		links = append(links, link{
			href:    finalURL,
			title:   normalizeText(a.Text()),
			snippet: normalizeText(snippet),
		})
	})

	return collectResults(links, d.GetName(), config), nil
}

// extractFinalURL extracts the actual URL from DuckDuckGo's redirect URL
func (d *DuckDuckGoProvider) extractFinalURL(redirectURL string) string {
	// DuckDuckGo uses URLs like: //duckduckgo.com/l/?uddg=https%3A//example.com/...&rut=...
	if strings.Contains(redirectURL, "/l/?") {
		parsed, err := url.Parse(redirectURL)
		if err != nil {
			return ""
		}
		// Query() already unescapes the parameter.
		if uddg := parsed.Query().Get("uddg"); uddg != "" {
			return uddg
		}
	}

	if isAbsoluteHTTP(redirectURL) {
		return redirectURL
	}

	return ""
}

// normalizeText collapses whitespace in scraped text.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
