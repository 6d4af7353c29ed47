package search

import (
	"context"
	"sync"
)

// MockProvider implements Provider for testing purposes
type MockProvider struct {
	mu      sync.Mutex
	name    string
	results []Result
	err     error
	queries []string
}

// NewMockProvider creates a new mock search provider
func NewMockProvider(name string, urls ...string) *MockProvider {
	m := &MockProvider{name: name}
	m.SetURLs(urls...)
	return m
}

// GetName returns the name of this provider
func (m *MockProvider) GetName() string {
	return m.name
}

// Search returns mock search results
func (m *MockProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}

	maxResults := config.MaxResults
	if maxResults <= 0 || maxResults > len(m.results) {
		maxResults = len(m.results)
	}
	results := make([]Result, maxResults)
	copy(results, m.results[:maxResults])
	return results, nil
}

// SetURLs replaces the mock results with one result per URL
func (m *MockProvider) SetURLs(urls ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results = make([]Result, 0, len(urls))
	for i, u := range urls {
		m.results = append(m.results, Result{URL: u, Domain: extractDomain(u), Source: m.name, Rank: i + 1})
	}
}

// SetError makes every subsequent search fail with err
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Queries returns the queries received so far
func (m *MockProvider) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.queries...)
}
