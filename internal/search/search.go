package search

import (
	"context"
	"net/url"
	"strings"
)

// Provider defines the unified interface for search providers
type Provider interface {
	// Search performs a search with configuration
	Search(ctx context.Context, query string, config Config) ([]Result, error)

	// GetName returns the name of the search provider
	GetName() string
}

// Config holds configuration for search requests
type Config struct {
	MaxResults    int    // Maximum number of results to return
	Language      string // Language preference (e.g., "en", "es")
	ExcludeDomain string // Domain whose results are always dropped
}

// Result represents a unified search result
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
	Source  string `json:"source"` // Provider-specific source identifier
	Rank    int    `json:"rank"`   // Position in search results
}

// ProviderType represents the type of search provider
type ProviderType string

const (
	ProviderTypeSearx      ProviderType = "searx"
	ProviderTypeDuckDuckGo ProviderType = "duckduckgo"
	ProviderTypeBing       ProviderType = "bing"
	ProviderTypeGoogle     ProviderType = "google"
	ProviderTypeSeeds      ProviderType = "seeds"
	ProviderTypeMock       ProviderType = "mock"
)

// WithSiteExclusion appends a -site: operator for domain to query.
func WithSiteExclusion(query, domain string) string {
	if domain == "" || strings.Contains(query, "-site:"+domain) {
		return query
	}
	return strings.TrimSpace(query) + " -site:" + domain
}

// extractDomain extracts the domain name from a URL
func extractDomain(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// isExcluded reports whether urlStr lives on domain or one of its subdomains.
func isExcluded(urlStr, domain string) bool {
	if domain == "" {
		return false
	}
	host := strings.ToLower(extractDomain(urlStr))
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// isAbsoluteHTTP reports whether href is an absolute http(s) URL.
func isAbsoluteHTTP(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// collectResults turns raw links into ranked results, dropping duplicates, non-http links and
// the excluded domain.
func collectResults(links []link, source string, config Config) []Result {
	var results []Result
	seen := make(map[string]bool)
	for _, l := range links {
		if config.MaxResults > 0 && len(results) >= config.MaxResults {
			break
		}
		if !isAbsoluteHTTP(l.href) || seen[l.href] || isExcluded(l.href, config.ExcludeDomain) {
			continue
		}
		seen[l.href] = true
		results = append(results, Result{
			URL:     l.href,
			Title:   l.title,
			Snippet: l.snippet,
			Domain:  extractDomain(l.href),
			Source:  source,
			Rank:    len(results) + 1,
		})
	}
	return results
}

type link struct {
	href    string
	title   string
	snippet string
}
