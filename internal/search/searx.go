package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"updater/internal/classify"
	"updater/internal/core"
	"updater/internal/logger"
)

const (
	// DefaultSearxURL is the SearxNG metasearch endpoint.
	DefaultSearxURL = "https://searxng.matrixaiserver.com/search"

	maxSearxResults = 10
	maxResponseSize = 4 << 20
)

// SearxProvider queries a SearxNG instance, falling back across response formats because
// instances differ in which formats they actually serve.
type SearxProvider struct {
	endpoint   string
	client     *http.Client
	classifier *classify.Classifier
}

// NewSearxProvider creates a SearxNG provider.
func NewSearxProvider(endpoint string, client *http.Client, classifier *classify.Classifier) *SearxProvider {
	if endpoint == "" {
		endpoint = DefaultSearxURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if classifier == nil {
		classifier = classify.New()
	}
	return &SearxProvider{endpoint: endpoint, client: client, classifier: classifier}
}

// GetName returns the name of this provider
func (s *SearxProvider) GetName() string {
	return "SearxNG"
}

// Search performs a search and returns eligible result URLs.
func (s *SearxProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	results, _, err := s.SearchWithAnalysis(ctx, query, config)
	return results, err
}

// SearchWithAnalysis runs GET json, POST text, POST json and GET html in that order, stopping
// at the first response with at least two eligible URLs. Every validator analysis is returned.
func (s *SearxProvider) SearchWithAnalysis(ctx context.Context, query string, config Config) ([]Result, []core.SearchAnalysis, error) {
	var analyses []core.SearchAnalysis

	attempt := func(method, mode string) step[core.SearchAnalysis] {
		return func(ctx context.Context) (core.SearchAnalysis, error) {
			body, err := s.request(ctx, method, mode, query)
			if err != nil {
				logger.Debug("SearxNG request failed", "method", method, "mode", mode, "error", err.Error())
				return core.SearchAnalysis{}, err
			}
			payload := ClassifyPayload(mode, body)
			analysis := payload.Validate(query, mode, s.classifier)
			analyses = append(analyses, analysis)
			logger.Debug("SearxNG response validated", "method", method, "mode", mode, "payload", payload.Kind(), "issues", analysis.Issues, "valid_urls", len(analysis.ValidURLs))
			return analysis, nil
		}
	}

	steps := []step[core.SearchAnalysis]{
		attempt(http.MethodGet, ModeJSON),
		attempt(http.MethodPost, ModeText),
		attempt(http.MethodPost, ModeJSON),
		attempt(http.MethodGet, ModeHTML),
	}
	best, _, err := firstSuccess(ctx, steps, func(a core.SearchAnalysis) bool {
		return len(a.ValidURLs) >= minValidURLs
	})
	if err != nil {
		return nil, analyses, err
	}
	if len(analyses) == 0 {
		return nil, analyses, fmt.Errorf("%w: every SearxNG request failed", ErrProviderUnavailable)
	}

	links := make([]link, 0, len(best.ValidURLs))
	for _, u := range best.ValidURLs {
		links = append(links, link{href: u})
	}
	limit := config
	if limit.MaxResults <= 0 || limit.MaxResults > maxSearxResults {
		limit.MaxResults = maxSearxResults
	}
	results := collectResults(links, s.GetName(), limit)

	logger.Info("SearxNG search completed", "query", query, "results_found", len(results), "attempts", len(analyses))
	return results, analyses, nil
}

func (s *SearxProvider) request(ctx context.Context, method, mode, query string) ([]byte, error) {
	params := url.Values{}
	params.Set("q", query)
	if mode != ModeHTML {
		params.Set("format", mode)
	}

	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, s.endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, s.endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	switch mode {
	case ModeJSON:
		req.Header.Set("Accept", "application/json")
	case ModeHTML:
		req.Header.Set("Accept", "text/html")
	}

	resp, err := s.client.Do(req)
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
	return body, nil
}
